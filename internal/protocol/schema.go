package protocol

// toolDef is one entry of the tools/list advertisement.
type toolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// scopeSchema is the oneOf over the three scope variants, shared by
// search_code and ask_code, per spec.md §6.
func scopeSchema() map[string]any {
	return map[string]any{
		"oneOf": []any{
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"repo": map[string]any{"type": "string"}},
				"required":   []any{"repo"},
			},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"repos": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "string"},
						"minItems": 1,
						"maxItems": 10,
					},
				},
				"required": []any{"repos"},
			},
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"all": map[string]any{"type": "boolean"}},
				"required":   []any{"all"},
			},
		},
	}
}

func contentTypeSchema() map[string]any {
	return map[string]any{
		"type":    "string",
		"enum":    []any{"code", "docs", "all"},
		"default": "all",
	}
}

// toolDefs returns the three tools advertised by tools/list. Its output is
// byte-stable across calls: every value is a literal built fresh from fixed
// Go data, and encoding/json always serializes map keys in sorted order.
func toolDefs() []toolDef {
	return []toolDef{
		{
			Name:        "search_code",
			Description: "Semantic search over indexed code and documentation.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"scope":       scopeSchema(),
					"query":       map[string]any{"type": "string"},
					"topK":        map[string]any{"type": "integer"},
					"pathPrefix":  map[string]any{"type": "string"},
					"vector":      map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
					"contentType": contentTypeSchema(),
					"strict":      map[string]any{"type": "boolean", "default": false},
				},
				"required": []any{"scope", "query"},
			},
		},
		{
			Name:        "open_file",
			Description: "Read a bounded line range of a file inside the codebase sandbox.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"repo":      map[string]any{"type": "string"},
					"path":      map[string]any{"type": "string"},
					"startLine": map[string]any{"type": "integer"},
					"endLine":   map[string]any{"type": "integer"},
					"maxBytes":  map[string]any{"type": "integer"},
				},
				"required": []any{"repo", "path"},
			},
		},
		{
			Name:        "ask_code",
			Description: "Answer a question by retrieving and citing evidence from the codebase.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"scope":       scopeSchema(),
					"query":       map[string]any{"type": "string"},
					"topK":        map[string]any{"type": "integer"},
					"pathPrefix":  map[string]any{"type": "string"},
					"language":    map[string]any{"type": "string"},
					"minScore":    map[string]any{"type": "number"},
					"llmModel":    map[string]any{"type": "string"},
					"grounded":    map[string]any{"type": "boolean", "default": false},
					"contentType": contentTypeSchema(),
					"strict":      map[string]any{"type": "boolean", "default": false},
				},
				"required": []any{"scope", "query"},
			},
		},
	}
}
