// Package rag implements the RAG Tool (spec.md §4.7): it orchestrates
// embed → search → post-filter → enrich → prompt/grounded → chat, while
// preserving the evidence-first, zero-evidence anti-hallucination guardrail.
//
// Grounded on other_examples/d11d0709_Dirstral-dir2mcp's Ask pipeline for
// the citation/evidence composition shape, layered over this repo's own
// Search Tool and File Reader Tool instead of dir2mcp's single retrieval
// service.
package rag

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jamaly87/code-compass/internal/chat"
	"github.com/jamaly87/code-compass/internal/embeddings"
	"github.com/jamaly87/code-compass/internal/model"
	"github.com/jamaly87/code-compass/internal/tools/filereader"
	"github.com/jamaly87/code-compass/internal/tools/search"
)

const (
	noEvidenceAnswer = "Sem evidência suficiente para responder com confiança."
	noChatAnswer     = "(sem resposta)"

	minQueryLen = 1
	maxQueryLen = 500

	defaultTopK  = 5
	minTopK      = 1
	maxTopK      = 20
	defaultMinScore = 0.6

	perRepoEnrichmentCap = 2
)

// Tool runs one ask_code call end to end.
type Tool struct {
	search             *search.Tool
	reader             *filereader.Tool
	embedder           *embeddings.Client
	chatter            *chat.Client
	embeddingModelCode string
	embeddingModelDocs string
	defaultChatModel   string
}

// New builds a Tool wiring the Search Tool, File Reader Tool, embedding and
// chat clients, and the configured default embedding/chat models.
func New(searchTool *search.Tool, reader *filereader.Tool, embedder *embeddings.Client, chatter *chat.Client, embeddingModelCode, embeddingModelDocs, defaultChatModel string) *Tool {
	return &Tool{
		search:             searchTool,
		reader:             reader,
		embedder:           embedder,
		chatter:            chatter,
		embeddingModelCode: embeddingModelCode,
		embeddingModelDocs: embeddingModelDocs,
		defaultChatModel:   defaultChatModel,
	}
}

// Input is the raw ask_code request, before defaulting/clamping.
type Input struct {
	Scope       model.Scope
	Query       string
	TopK        int
	PathPrefix  string
	Language    string
	MinScore    *float64
	LLMModel    string
	Grounded    bool
	ContentType model.ContentType
	Strict      bool
}

// Meta mirrors spec.md §4.7 step 9's assembled meta object.
type Meta struct {
	Scope           search.ScopeMeta
	TopK            int
	MinScore        float64
	LLMModel        string
	ContentType     model.ContentType
	Strict          bool
	Collection      string
	CollectionsMeta []model.CollectionMeta
	TotalMatches    int
	ContextsUsed    int
	ElapsedMS       int64
	PathPrefix      string
	Language        string
}

// Output is the ask_code result.
type Output struct {
	Answer    string
	Evidences []model.Evidence
	Meta      Meta
}

// Run executes the full pipeline described in spec.md §4.7.
func (t *Tool) Run(ctx context.Context, in Input) (*Output, error) {
	start := time.Now()

	if err := validateQuery(in.Query); err != nil {
		return nil, err
	}
	topK := clampTopK(in.TopK)
	minScore := defaultMinScore
	if in.MinScore != nil {
		if math.IsNaN(*in.MinScore) || math.IsInf(*in.MinScore, 0) {
			return nil, model.NewError(model.CodeBadRequest, "minScore must be finite")
		}
		minScore = *in.MinScore
	}
	llmModel := in.LLMModel
	if llmModel == "" {
		llmModel = t.defaultChatModel
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = model.ContentAll
	}

	embeddingModel := t.embeddingModelCode
	if contentType == model.ContentDocs {
		embeddingModel = t.embeddingModelDocs
	}
	vector, err := t.embedder.Embed(ctx, embeddingModel, in.Query)
	if err != nil {
		return nil, err
	}

	searchOut, err := t.search.Run(ctx, search.Input{
		Scope:       in.Scope,
		Query:       in.Query,
		TopK:        topK,
		PathPrefix:  in.PathPrefix,
		Vector:      vector,
		ContentType: contentType,
		Strict:      in.Strict,
	})
	if err != nil {
		return nil, err
	}

	totalMatches := len(searchOut.Results)
	filtered := postFilter(searchOut.Results, minScore, in.Language)
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}

	evidences := t.enrich(in.Scope, filtered)

	elapsed := time.Since(start).Milliseconds()
	meta := Meta{
		Scope:           searchOut.Scope,
		TopK:            topK,
		MinScore:        minScore,
		LLMModel:        llmModel,
		ContentType:     contentType,
		Strict:          in.Strict,
		Collection:      searchOut.Collection,
		CollectionsMeta: searchOut.CollectionsMeta,
		TotalMatches:    totalMatches,
		ContextsUsed:    len(evidences),
		ElapsedMS:       elapsed,
		PathPrefix:      in.PathPrefix,
		Language:        in.Language,
	}

	if len(evidences) == 0 {
		return &Output{Answer: noEvidenceAnswer, Evidences: []model.Evidence{}, Meta: meta}, nil
	}

	if in.Grounded {
		return &Output{Answer: groundedAnswer(evidences), Evidences: evidences, Meta: meta}, nil
	}

	answer, err := t.askChat(ctx, llmModel, in.Query, evidences)
	if err != nil {
		return nil, err
	}
	return &Output{Answer: answer, Evidences: evidences, Meta: meta}, nil
}

func validateQuery(q string) error {
	n := len([]rune(q))
	if n < minQueryLen || n > maxQueryLen {
		return model.NewError(model.CodeBadRequest, "query must be between 1 and 500 characters")
	}
	return nil
}

func clampTopK(topK int) int {
	if topK == 0 {
		return defaultTopK
	}
	if topK < minTopK {
		return minTopK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}

func postFilter(results []model.Result, minScore float64, language string) []model.Evidence {
	out := make([]model.Evidence, 0, len(results))
	for _, r := range results {
		if r.Score < minScore {
			continue
		}
		if !matchesLanguage(language, r.Path) {
			continue
		}
		out = append(out, model.Evidence{Result: r})
	}
	return out
}

// enrich re-reads each evidence's snippet from disk via the File Reader
// Tool, capping enrichment at 2 evidences per repo for non-single-repo
// scopes. A sandbox/read failure is swallowed: the un-enriched evidence is
// kept rather than surfaced as a user-visible error.
func (t *Tool) enrich(scope model.Scope, evidences []model.Evidence) []model.Evidence {
	_, singleRepo := scope.SingleRepo()
	counts := map[string]int{}

	out := make([]model.Evidence, 0, len(evidences))
	for _, e := range evidences {
		if !singleRepo {
			if counts[e.Repo] >= perRepoEnrichmentCap {
				out = append(out, e)
				continue
			}
			counts[e.Repo]++
		}
		out = append(out, t.enrichOne(e))
	}
	return out
}

func (t *Tool) enrichOne(e model.Evidence) model.Evidence {
	startLine := 1
	if e.StartLine != nil {
		startLine = *e.StartLine
	}
	endLine := startLine + 50
	if e.EndLine != nil {
		endLine = *e.EndLine
	}

	resp, err := t.reader.Read(model.FileRange{
		Repo:      e.Repo,
		Path:      e.Path,
		StartLine: startLine,
		EndLine:   endLine,
	})
	if err != nil {
		return e
	}

	s := startLine
	en := resp.EndLine
	e.StartLine = &s
	e.EndLine = &en
	e.Snippet = strings.TrimSpace(resp.Text)
	return e
}

func groundedAnswer(evidences []model.Evidence) string {
	var b strings.Builder
	for _, e := range evidences {
		s, en := lineSpan(e)
		fmt.Fprintf(&b, "- %s (lines %d-%d)\n```\n%s\n```\n", e.Path, s, en, e.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}

func lineSpan(e model.Evidence) (int, int) {
	s, en := 0, 0
	if e.StartLine != nil {
		s = *e.StartLine
	}
	if e.EndLine != nil {
		en = *e.EndLine
	}
	return s, en
}

const systemPrompt = "Responda apenas com base nos trechos fornecidos. Não invente informações, APIs ou comportamento fora do contexto apresentado."

func (t *Tool) askChat(ctx context.Context, llmModel, query string, evidences []model.Evidence) (string, error) {
	var b strings.Builder
	for i, e := range evidences {
		s, en := lineSpan(e)
		fmt.Fprintf(&b, "### Arquivo %d: %s (linhas %d-%d)\n```\n%s\n```\n\n", i+1, e.Path, s, en, e.Snippet)
	}
	fmt.Fprintf(&b, "Pergunta: %s\nResposta:", query)

	answer, err := t.chatter.Complete(ctx, llmModel, systemPrompt, b.String())
	if err != nil {
		return "", err
	}
	if answer == "" {
		return noChatAnswer, nil
	}
	return answer, nil
}
