package vectorstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jamaly87/code-compass/internal/model"
)

// mockData is the parsed form of MCP_QDRANT_MOCK_RESPONSE: a map from
// collection name to the full set of hits the store would otherwise return
// for that collection, before client-side filtering. A collection absent
// from the map is reported as unavailable.
type mockData struct {
	Collections map[string][]mockHit `json:"collections"`
}

type mockHit struct {
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func parseMock(jsonLiteral string) (*mockData, error) {
	var m mockData
	if err := json.Unmarshal([]byte(jsonLiteral), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// searchMock applies the path-prefix, repo, and content-type filters
// client-side over the mock collection data, per spec.md §4.2's test-mock
// rule, then truncates to TopK.
func (c *Client) searchMock(req Request) ([]model.Hit, error) {
	rows, ok := c.mock.Collections[req.Collection]
	if !ok {
		return nil, fmt.Errorf("mock payload has no collection %q", req.Collection)
	}

	repoSet := make(map[string]bool, len(req.Repos))
	for _, r := range req.Repos {
		repoSet[r] = true
	}

	hits := make([]model.Hit, 0, len(rows))
	for _, row := range rows {
		h := model.Hit{Score: row.Score, Payload: row.Payload}

		if req.PathPrefix != "" && !strings.Contains(h.Path(), req.PathPrefix) {
			continue
		}
		if len(repoSet) > 0 && !repoSet[h.Repo()] {
			continue
		}
		if req.ContentType != "" && string(h.ContentType()) != string(req.ContentType) {
			continue
		}
		hits = append(hits, h)
	}
	if len(hits) > req.TopK && req.TopK > 0 {
		hits = hits[:req.TopK]
	}
	return hits, nil
}
