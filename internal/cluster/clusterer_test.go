package cluster

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// fakeEmbedder maps known texts to fixed vectors so clustering is exact.
type fakeEmbedder struct {
	vectors map[string][]float64
	mu      sync.Mutex
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	out := make([][]float64, len(texts))
	for i, txt := range texts {
		v, ok := f.vectors[txt]
		if !ok {
			v = []float64{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func clusterMarkets() []domain.Market {
	return []domain.Market{
		{ID: "a", Question: "btc up"},
		{ID: "b", Question: "bitcoin rises"},
		{ID: "c", Question: "eth up"},
		{ID: "d", Question: "ethereum rises"},
		{ID: "e", Question: "weather tomorrow"},
	}
}

func clusterVectors() map[string][]float64 {
	return map[string][]float64{
		"btc up":           {1, 0, 0},
		"bitcoin rises":    {0.99, 0.1, 0},
		"eth up":           {0, 1, 0},
		"ethereum rises":   {0.1, 0.99, 0},
		"weather tomorrow": {0.5, 0.5, 0.7},
	}
}

func TestClusterMarketsGroupsBySimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: clusterVectors()}
	c := New(emb, 2, 2, slog.Default())

	clusters, err := c.ClusterMarkets(context.Background(), clusterMarkets(), 0.9)
	require.NoError(t, err)
	require.Len(t, clusters, 2, "btc pair and eth pair; the singleton is dropped")

	assert.Equal(t, []string{"a", "b"}, clusters[0].MarketIDs)
	assert.Equal(t, []string{"c", "d"}, clusters[1].MarketIDs)
}

func TestClusterMarketsDeterministic(t *testing.T) {
	run := func() []Cluster {
		emb := &fakeEmbedder{vectors: clusterVectors()}
		c := New(emb, 2, 4, slog.Default())
		clusters, err := c.ClusterMarkets(context.Background(), clusterMarkets(), 0.9)
		require.NoError(t, err)
		return clusters
	}

	first := run()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run(), "identical input yields identical clusters")
	}
}

func TestClusterMarketsDisjoint(t *testing.T) {
	emb := &fakeEmbedder{vectors: clusterVectors()}
	c := New(emb, 64, 1, slog.Default())

	clusters, err := c.ClusterMarkets(context.Background(), clusterMarkets(), 0.5)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, cl := range clusters {
		for _, id := range cl.MarketIDs {
			seen[id]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "market %s appears in exactly one cluster", id)
	}
}

func TestClusterBatching(t *testing.T) {
	emb := &fakeEmbedder{vectors: clusterVectors()}
	c := New(emb, 2, 1, slog.Default())

	_, err := c.ClusterMarkets(context.Background(), clusterMarkets(), 0.9)
	require.NoError(t, err)
	assert.Equal(t, 3, emb.calls, "five texts at batch size two need three calls")
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Zero(t, cosine([]float64{1}, []float64{1, 2}), "dimension mismatch scores zero")
	assert.Zero(t, cosine(nil, nil))
}
