// Package scope implements the Scope Resolver (spec.md §4.4): it turns a
// free-form `scope` tool argument plus an optional legacy top-level `repo`
// field into a canonical model.Scope.
package scope

import (
	"github.com/jamaly87/code-compass/internal/model"
)

// Resolve applies the Scope Resolver rules. scopeRaw is the decoded JSON
// value of the tool's `scope` argument (nil if absent); legacyRepo is the
// decoded top-level `repo` string (empty if absent).
//
// The `scope` argument, when present, is a JSON object carrying exactly one
// of: `repo` (string), `repos` (array of strings), `all` (boolean true).
func Resolve(scopeRaw any, legacyRepo string, allowGlobal bool) (model.Scope, error) {
	if scopeRaw != nil {
		return resolveScopeValue(scopeRaw, allowGlobal)
	}
	if legacyRepo != "" {
		if err := model.ValidateRepoName(legacyRepo); err != nil {
			return model.Scope{}, err
		}
		return model.Scope{Type: model.ScopeRepo, Repos: []string{legacyRepo}}, nil
	}
	return model.Scope{}, model.NewError(model.CodeBadRequest, "scope (or legacy repo) is required")
}

func resolveScopeValue(scopeRaw any, allowGlobal bool) (model.Scope, error) {
	m, ok := scopeRaw.(map[string]any)
	if !ok {
		return model.Scope{}, model.NewError(model.CodeBadRequest, "scope must be an object")
	}

	if v, present := m["repo"]; present {
		name, ok := v.(string)
		if !ok {
			return model.Scope{}, model.NewError(model.CodeBadRequest, "scope.repo must be a string")
		}
		if err := model.ValidateRepoName(name); err != nil {
			return model.Scope{}, err
		}
		return model.Scope{Type: model.ScopeRepo, Repos: []string{name}}, nil
	}

	if v, present := m["repos"]; present {
		list, ok := v.([]any)
		if !ok {
			return model.Scope{}, model.NewError(model.CodeBadRequest, "scope.repos must be an array of strings")
		}
		repos, err := dedupeValidated(list)
		if err != nil {
			return model.Scope{}, err
		}
		if len(repos) == 0 {
			return model.Scope{}, model.NewError(model.CodeBadRequest, "scope.repos must contain at least one repository")
		}
		if len(repos) > 10 {
			return model.Scope{}, model.NewError(model.CodeBadRequest, "scope.repos must contain at most 10 repositories")
		}
		return model.Scope{Type: model.ScopeRepos, Repos: repos}, nil
	}

	if v, present := m["all"]; present {
		allTrue, _ := v.(bool)
		if !allTrue {
			return model.Scope{}, model.NewError(model.CodeBadRequest, "scope.all must be true")
		}
		if !allowGlobal {
			return model.Scope{}, model.NewError(model.CodeForbidden, "global scope is disabled")
		}
		return model.Scope{Type: model.ScopeAll}, nil
	}

	return model.Scope{}, model.NewError(model.CodeBadRequest, "scope must have exactly one of repo, repos, all")
}

// dedupeValidated validates each entry of list as a repo name and returns
// the deduplicated, order-preserving result.
func dedupeValidated(list []any) ([]string, error) {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, v := range list {
		name, ok := v.(string)
		if !ok {
			return nil, model.NewError(model.CodeBadRequest, "scope.repos entries must be strings")
		}
		if err := model.ValidateRepoName(name); err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}
