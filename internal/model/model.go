// Package model holds the value types shared across Code Compass's
// request-serving layer: scope, content type, retrieval requests/results,
// file ranges, and the classified error taxonomy in errors.go. Every type
// here is an immutable value produced by one request and never shared
// across requests.
package model

import "strings"

// ContentType selects which collection(s) a request targets.
type ContentType string

const (
	ContentCode ContentType = "code"
	ContentDocs ContentType = "docs"
	ContentAll  ContentType = "all"
)

// ScopeType tags the three Scope variants.
type ScopeType string

const (
	ScopeRepo  ScopeType = "repo"
	ScopeRepos ScopeType = "repos"
	ScopeAll   ScopeType = "all"
)

// Scope is the tagged-variant selector of which repositories a request may
// search. Repos is always a validated, order-preserving, deduplicated list;
// empty for ScopeAll.
type Scope struct {
	Type  ScopeType
	Repos []string
}

// SingleRepo reports the lone repository name for a repo-scope, or ("", false).
func (s Scope) SingleRepo() (string, bool) {
	if s.Type == ScopeRepo && len(s.Repos) == 1 {
		return s.Repos[0], true
	}
	return "", false
}

const (
	maxRepoNameLen  = 200
	maxReposInScope = 10
)

// ValidateRepoName enforces the repository name invariants from spec.md §3:
// non-empty, ≤200 chars, no path separators, no NUL, no ".." segment.
func ValidateRepoName(name string) error {
	if name == "" {
		return NewError(CodeBadRequest, "repository name must not be empty")
	}
	if len(name) > maxRepoNameLen {
		return NewError(CodeBadRequest, "repository name exceeds 200 characters")
	}
	if strings.ContainsAny(name, "/\\") {
		return NewError(CodeBadRequest, "repository name must not contain path separators")
	}
	if strings.ContainsRune(name, 0) {
		return NewError(CodeBadRequest, "repository name must not contain NUL")
	}
	for _, seg := range strings.Split(strings.ReplaceAll(name, "\\", "/"), "/") {
		if seg == ".." {
			return NewError(CodeBadRequest, "repository name must not contain a \"..\" segment")
		}
	}
	return nil
}

// Hit is a raw result from the vector store: a score and a loosely-typed
// payload using the well-known keys spec.md §3 names.
type Hit struct {
	Score   float64
	Payload map[string]any
}

func payloadString(p map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := p[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func payloadInt(p map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		v, ok := p[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			return int(n), true
		}
	}
	return 0, false
}

// Repo returns payload["repo"].
func (h Hit) Repo() string { return payloadString(h.Payload, "repo") }

// Path returns payload["path"].
func (h Hit) Path() string { return payloadString(h.Payload, "path") }

// Text returns payload["text"].
func (h Hit) Text() string { return payloadString(h.Payload, "text") }

// StartLine returns payload["startLine"]/"start_line", if present.
func (h Hit) StartLine() (int, bool) { return payloadInt(h.Payload, "startLine", "start_line") }

// EndLine returns payload["endLine"]/"end_line", if present.
func (h Hit) EndLine() (int, bool) { return payloadInt(h.Payload, "endLine", "end_line") }

// docExtensions and docSubstrings classify a path as docs content when no
// explicit content_type is present in the payload, per spec.md §3.
var docExtensions = []string{".md", ".mdx", ".rst", ".adoc", ".txt"}
var docSubstrings = []string{"/docs/", "/adr"}

// ContentType infers payload["content_type"], falling back to path-based
// classification when absent.
func (h Hit) ContentType() ContentType {
	if v := payloadString(h.Payload, "content_type"); v == string(ContentDocs) || v == string(ContentCode) {
		return ContentType(v)
	}
	p := strings.ToLower(h.Path())
	for _, ext := range docExtensions {
		if strings.HasSuffix(p, ext) {
			return ContentDocs
		}
	}
	for _, sub := range docSubstrings {
		if strings.Contains(p, sub) {
			return ContentDocs
		}
	}
	if strings.HasSuffix(p, "readme.md") {
		return ContentDocs
	}
	return ContentCode
}

// Result is a shaped Hit ready to leave the Search Tool.
type Result struct {
	Repo        string
	Score       float64
	Path        string
	StartLine   *int
	EndLine     *int
	Snippet     string
	ContentType ContentType
}

const maxSnippetLen = 300

// collapseWhitespace squeezes runs of whitespace to a single space and trims
// the result, per spec.md §3's Result.Snippet rule.
func collapseWhitespace(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// ShapeResult converts a Hit into its shaped Result, applying the snippet
// truncation and "(no snippet)" sentinel rules from spec.md §3.
func ShapeResult(h Hit) Result {
	r := Result{
		Repo:        h.Repo(),
		Score:       h.Score,
		Path:        h.Path(),
		ContentType: h.ContentType(),
	}
	if v, ok := h.StartLine(); ok {
		r.StartLine = &v
	}
	if v, ok := h.EndLine(); ok {
		r.EndLine = &v
	}
	text := h.Text()
	if text == "" {
		r.Snippet = "(no snippet)"
		return r
	}
	snippet := collapseWhitespace(text)
	if snippet == "" {
		r.Snippet = "(no snippet)"
		return r
	}
	if len([]rune(snippet)) > maxSnippetLen {
		runes := []rune(snippet)
		snippet = string(runes[:maxSnippetLen-3]) + "…"
	}
	r.Snippet = snippet
	return r
}

// CollectionStatus is the per-collection outcome of a fan-out call.
type CollectionStatus string

const (
	StatusOK          CollectionStatus = "ok"
	StatusPartial     CollectionStatus = "partial"
	StatusUnavailable CollectionStatus = "unavailable"
)

// CollectionMeta reports one collection's participation in a retrieval call.
type CollectionMeta struct {
	Name        string
	ContentType ContentType
	Hits        int
	LatencyMS   int64
	Status      CollectionStatus
}

// RetrievalRequest is the validated input to the Retrieval Engine.
type RetrievalRequest struct {
	Scope       Scope
	Query       string
	TopK        int
	PathPrefix  string
	Vector      []float64
	ContentType ContentType
	Strict      bool
}

// FileRange is the validated, clamped input to the File Reader Tool.
type FileRange struct {
	Repo      string
	Path      string
	StartLine int
	EndLine   int
	MaxBytes  int
}

// FileResponse is the File Reader Tool's output.
type FileResponse struct {
	Path       string
	StartLine  int
	EndLine    int
	TotalLines *int
	Text       string
	Truncated  bool
}

// Evidence is a Result whose snippet has been re-read from disk.
type Evidence struct {
	Result
}
