// Package cluster groups markets whose question and rules text are
// semantically close, surfacing candidate relations that keyword matching
// misses. Clustering is Union-Find over cosine-similar embedding pairs and
// is deterministic for a fixed embedder.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Embedder turns a batch of texts into dense vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Cluster is a set of market identifiers judged semantically close. Members
// keep snapshot order; clusters are ordered by their first member.
type Cluster struct {
	MarketIDs []string
}

// Clusterer embeds market text in parallel batches and groups by cosine
// similarity.
type Clusterer struct {
	embedder  Embedder
	batchSize int
	nEmbed    int
	logger    *slog.Logger
}

// New creates a Clusterer. batchSize bounds texts per embedding call and
// nEmbed bounds concurrent calls.
func New(embedder Embedder, batchSize, nEmbed int, logger *slog.Logger) *Clusterer {
	if batchSize <= 0 {
		batchSize = 64
	}
	if nEmbed <= 0 {
		nEmbed = 4
	}
	return &Clusterer{
		embedder:  embedder,
		batchSize: batchSize,
		nEmbed:    nEmbed,
		logger:    logger.With(slog.String("component", "cluster")),
	}
}

// ClusterMarkets groups markets whose pairwise cosine similarity reaches the
// threshold. Only clusters with at least two members are returned; the
// result is disjoint and stable for identical input.
func (c *Clusterer) ClusterMarkets(ctx context.Context, markets []domain.Market, threshold float64) ([]Cluster, error) {
	if len(markets) < 2 {
		return nil, nil
	}

	texts := make([]string, len(markets))
	for i := range markets {
		texts[i] = embedText(&markets[i])
	}

	vectors, err := c.embedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("cluster: embed markets: %w", err)
	}

	uf := newUnionFind(len(markets))
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			if cosine(vectors[i], vectors[j]) >= threshold {
				uf.union(i, j)
			}
		}
	}

	// Group by root, keeping first-member order for stability.
	order := make([]int, 0)
	members := make(map[int][]int)
	for i := range markets {
		root := uf.find(i)
		if _, ok := members[root]; !ok {
			order = append(order, root)
		}
		members[root] = append(members[root], i)
	}

	var clusters []Cluster
	for _, root := range order {
		idx := members[root]
		if len(idx) < 2 {
			continue
		}
		cl := Cluster{MarketIDs: make([]string, 0, len(idx))}
		for _, i := range idx {
			cl.MarketIDs = append(cl.MarketIDs, markets[i].ID)
		}
		clusters = append(clusters, cl)
	}

	c.logger.Debug("clustering complete",
		slog.Int("markets", len(markets)),
		slog.Int("clusters", len(clusters)),
	)
	return clusters, nil
}

// embedAll issues batched embedding calls with bounded parallelism,
// preserving input order in the result.
func (c *Clusterer) embedAll(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.nEmbed)

	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			batch, err := c.embedder.Embed(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func embedText(m *domain.Market) string {
	var sb strings.Builder
	sb.WriteString(m.Question)
	if m.Rules != "" {
		sb.WriteString(" ")
		sb.WriteString(m.Rules)
	}
	return sb.String()
}

// cosine is dimension-agnostic cosine similarity; mismatched or zero vectors
// score 0.
func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
