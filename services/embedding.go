package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"google.golang.org/genai"

	"tenderalign/config"
)

// EmbeddingMatch is the result of a semantic nearest-neighbor lookup.
type EmbeddingMatch struct {
	GlobalCode string
	Score      float64
}

// EmbeddingLookup is the narrow interface the catalog matcher consumes. A
// nil lookup, a returned error or a nil match all mean "tier unavailable";
// the import carries on without it.
type EmbeddingLookup interface {
	Nearest(ctx context.Context, text string, entries []*CatalogEntry) (*EmbeddingMatch, error)
}

// embeddingMinScore is the cosine similarity below which a nearest neighbor
// is discarded as noise.
const embeddingMinScore = 0.80

// GeminiEmbedder implements EmbeddingLookup against the Gemini embedding
// API. Transient failures are retried a bounded number of times with short
// backoff; exhaustion surfaces as an error the caller logs and skips.
type GeminiEmbedder struct {
	client  *genai.Client
	model   string
	retries int
}

// NewGeminiEmbedder builds the embedder from the embedding config section.
// Returns nil without error when the tier is disabled.
func NewGeminiEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (*GeminiEmbedder, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: cfg.Model, retries: cfg.Retries}, nil
}

// Nearest embeds the query together with every entry description in one
// call and returns the highest-scoring entry above the score floor.
func (g *GeminiEmbedder) Nearest(ctx context.Context, text string, entries []*CatalogEntry) (*EmbeddingMatch, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(entries)+1)
	contents = append(contents, genai.NewContentFromText(NormalizeLabel(text), genai.RoleUser))
	for _, e := range entries {
		contents = append(contents, genai.NewContentFromText(NormalizeLabel(e.Description), genai.RoleUser))
	}

	resp, err := g.embedWithRetry(ctx, contents)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(entries)+1 {
		return nil, fmt.Errorf("embedding response has %d vectors, expected %d", len(resp.Embeddings), len(entries)+1)
	}

	query := resp.Embeddings[0].Values
	best := -1
	bestScore := 0.0
	for i, e := range resp.Embeddings[1:] {
		score := cosineSimilarity(query, e.Values)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best == -1 || bestScore < embeddingMinScore {
		return nil, nil
	}
	return &EmbeddingMatch{GlobalCode: entries[best].GlobalCode, Score: bestScore}, nil
}

func (g *GeminiEmbedder) embedWithRetry(ctx context.Context, contents []*genai.Content) (*genai.EmbedContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, nil)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", g.retries+1, lastErr)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
