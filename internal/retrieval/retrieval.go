// Package retrieval implements the Retrieval Engine (spec.md §4.3): fan-out
// across the applicable vector-store collections, Reciprocal Rank Fusion of
// their hits, a per-contentType diversity floor, and partial-failure
// semantics gated by the caller's strict flag.
package retrieval

import (
	"context"
	"sort"

	"github.com/jamaly87/code-compass/internal/model"
	"github.com/jamaly87/code-compass/internal/vectorstore"
	"golang.org/x/sync/errgroup"
)

// Engine runs fan-out search across the code and docs collections.
type Engine struct {
	store          *vectorstore.Client
	codeCollection string
	docsCollection string
	rrfK           int
	diversityFloor int
}

// New builds an Engine backed by a single Vector Store Client used against
// both the code and docs collections.
func New(store *vectorstore.Client, codeCollection, docsCollection string, rrfK, diversityFloor int) *Engine {
	return &Engine{
		store:          store,
		codeCollection: codeCollection,
		docsCollection: docsCollection,
		rrfK:           rrfK,
		diversityFloor: diversityFloor,
	}
}

// Response is the Retrieval Engine's output.
type Response struct {
	Hits            []model.Hit
	Collection      string
	CollectionsMeta []model.CollectionMeta
}

// Retrieve runs target selection, fan-out, fusion, and partial-failure
// policy for one request.
func (e *Engine) Retrieve(ctx context.Context, req model.RetrievalRequest) (*Response, error) {
	switch req.ContentType {
	case model.ContentDocs:
		return e.single(ctx, req, e.docsCollection, model.ContentDocs)
	case model.ContentAll:
		return e.dual(ctx, req)
	default:
		return e.single(ctx, req, e.codeCollection, model.ContentCode)
	}
}

func (e *Engine) single(ctx context.Context, req model.RetrievalRequest, collection string, ct model.ContentType) (*Response, error) {
	res := e.store.Search(ctx, storeRequest(req, collection, ct))
	if res.Status != model.StatusOK {
		return nil, model.NewError(model.CodeQdrantUnavailable, "vector store collection unavailable: "+collection)
	}
	hits := res.Hits
	if len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	return &Response{
		Hits:       hits,
		Collection: e.codeCollection,
		CollectionsMeta: []model.CollectionMeta{{
			Name:        collection,
			ContentType: ct,
			Hits:        len(hits),
			LatencyMS:   res.LatencyMS,
			Status:      model.StatusOK,
		}},
	}, nil
}

func (e *Engine) dual(ctx context.Context, req model.RetrievalRequest) (*Response, error) {
	var codeRes, docsRes vectorstore.Result

	// Both calls must complete regardless of whether one fails; a plain
	// errgroup.Group (not the context-cancelling WithContext variant) runs
	// both concurrently without cancelling the sibling on first failure.
	var g errgroup.Group
	g.Go(func() error {
		codeRes = e.store.Search(ctx, storeRequest(req, e.codeCollection, model.ContentCode))
		return nil
	})
	g.Go(func() error {
		docsRes = e.store.Search(ctx, storeRequest(req, e.docsCollection, model.ContentDocs))
		return nil
	})
	_ = g.Wait()

	codeOK := codeRes.Status == model.StatusOK
	docsOK := docsRes.Status == model.StatusOK

	if !codeOK && !docsOK {
		return nil, model.NewError(model.CodeQdrantUnavailable, "both vector store collections unavailable")
	}
	if (!codeOK || !docsOK) && req.Strict {
		return nil, model.NewError(model.CodeQdrantUnavailable, "vector store collection unavailable under strict mode")
	}

	fused := fuse(codeRes.Hits, docsRes.Hits, e.rrfK, req.TopK, e.diversityFloor)

	meta := []model.CollectionMeta{
		collectionMeta(e.codeCollection, model.ContentCode, codeRes, codeOK, docsOK),
		collectionMeta(e.docsCollection, model.ContentDocs, docsRes, docsOK, codeOK),
	}

	return &Response{
		Hits:            fused,
		Collection:      e.codeCollection,
		CollectionsMeta: meta,
	}, nil
}

func collectionMeta(name string, ct model.ContentType, res vectorstore.Result, ok, counterpartOK bool) model.CollectionMeta {
	status := model.StatusUnavailable
	if ok {
		status = model.StatusOK
		if !counterpartOK {
			status = model.StatusPartial
		}
	}
	return model.CollectionMeta{
		Name:        name,
		ContentType: ct,
		Hits:        len(res.Hits),
		LatencyMS:   res.LatencyMS,
		Status:      status,
	}
}

func storeRequest(req model.RetrievalRequest, collection string, ct model.ContentType) vectorstore.Request {
	repos := req.Scope.Repos
	return vectorstore.Request{
		Collection:  collection,
		Vector:      req.Vector,
		TopK:        req.TopK,
		PathPrefix:  req.PathPrefix,
		Repos:       repos,
		ContentType: ct,
	}
}

// rankedHit carries a hit alongside its list-of-origin rank, used for RRF
// scoring and for the list-origin tie-break (code before docs).
type rankedHit struct {
	hit       model.Hit
	rrfScore  float64
	origin    int // 0 = code, 1 = docs
	rank      int // 1-based position within its origin list
}

// fuse merges codeHits and docsHits by Reciprocal Rank Fusion, applies the
// per-contentType diversity floor, and truncates to topK.
func fuse(codeHits, docsHits []model.Hit, k, topK, diversityFloor int) []model.Hit {
	ranked := make([]rankedHit, 0, len(codeHits)+len(docsHits))
	for i, h := range codeHits {
		r := i + 1
		ranked = append(ranked, rankedHit{hit: h, rrfScore: 1.0 / float64(k+r), origin: 0, rank: r})
	}
	for i, h := range docsHits {
		r := i + 1
		ranked = append(ranked, rankedHit{hit: h, rrfScore: 1.0 / float64(k+r), origin: 1, rank: r})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].rrfScore != ranked[j].rrfScore {
			return ranked[i].rrfScore > ranked[j].rrfScore
		}
		if ranked[i].origin != ranked[j].origin {
			return ranked[i].origin < ranked[j].origin // code before docs
		}
		return ranked[i].rank < ranked[j].rank
	})

	floor := diversityFloor
	if half := topK / 2; half < floor {
		floor = half
	}
	if floor < 0 {
		floor = 0
	}

	admitted := make([]model.Hit, 0, topK)
	var deferred []rankedHit
	counts := map[model.ContentType]int{}

	for _, r := range ranked {
		if len(admitted) >= topK {
			break
		}
		hit := r.hit
		ct := hit.ContentType()
		if counts[ct] < floor {
			admitted = append(admitted, hit)
			counts[ct]++
		} else {
			deferred = append(deferred, rankedHit{hit: hit, rrfScore: r.rrfScore, origin: r.origin, rank: r.rank})
		}
	}
	for _, r := range deferred {
		if len(admitted) >= topK {
			break
		}
		admitted = append(admitted, r.hit)
	}
	if len(admitted) > topK {
		admitted = admitted[:topK]
	}
	return admitted
}
