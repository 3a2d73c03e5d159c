package vectordb

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/shopagent/internal/logger"
)

// mockEmbedder returns deterministic embeddings based on text content.
// Similar texts produce similar vectors because shared characters
// contribute to the same positions.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range strings.ToLower(text) {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

type faultyEmbedder struct{ dims int }

func (f faultyEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("network unreachable")
}
func (f faultyEmbedder) Dimensions() int { return f.dims }
func (f faultyEmbedder) Name() string    { return "faulty" }

func newTestIndex(t *testing.T, opts Options) *Index {
	t.Helper()
	opts.Logger = logger.Discard()
	ix, err := New(newMockEmbedder(64), opts)
	require.NoError(t, err)
	return ix
}

func products() []Input {
	return []Input{
		{Content: "iPhone 15 Pro Max 256GB titan tự nhiên", Metadata: map[string]any{"title": "iPhone 15 Pro Max", "current_price": 29990000}},
		{Content: "Samsung Galaxy S24 Ultra 512GB", Metadata: map[string]any{"title": "Galaxy S24 Ultra"}},
		{Content: "Xiaomi Redmi Note 13 8GB RAM", Metadata: map[string]any{"title": "Redmi Note 13"}},
		{Content: "Tai nghe AirPods Pro 2 chống ồn", Metadata: map[string]any{"title": "AirPods Pro 2"}},
		{Content: "Ốp lưng iPhone 15 silicon", Metadata: map[string]any{"title": "Ốp lưng", "ignored": nil}},
	}
}

func TestIndex_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, Options{})

	n, err := ix.Add(ctx, products())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, ix.Count())

	results := ix.Search(ctx, "iPhone 15 Pro Max", 3)
	require.Len(t, results, 3)
	assert.Equal(t, "iPhone 15 Pro Max", results[0].Metadata["title"])
	assert.Equal(t, "29990000", results[0].Metadata["current_price"])
	assert.NotEmpty(t, results[0].ID)

	for _, r := range results {
		assert.GreaterOrEqual(t, r.Distance, 0.0)
		assert.Equal(t, roundTo(1-r.Distance, 3), r.RelevanceScore)
	}
}

func TestIndex_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, Options{})
	_, err := ix.Add(ctx, products())
	require.NoError(t, err)

	for _, q := range []string{"iphone", "samsung galaxy", "tai nghe", "xyz"} {
		results := ix.Search(ctx, q, 5)
		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance, "query %q", q)
			assert.GreaterOrEqual(t, results[i-1].RelevanceScore, results[i].RelevanceScore, "query %q", q)
		}
	}
}

func TestIndex_SearchDefaultsAndClamps(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, Options{DefaultK: 2})

	assert.Empty(t, ix.Search(ctx, "anything", 3))
	assert.NotNil(t, ix.Search(ctx, "anything", 3))

	_, err := ix.Add(ctx, products())
	require.NoError(t, err)

	assert.Len(t, ix.Search(ctx, "iphone", 0), 2)
	assert.Len(t, ix.Search(ctx, "iphone", -1), 2)
	assert.Len(t, ix.Search(ctx, "iphone", 50), 5)
}

func TestIndex_TotalUnderFaultyEmbedder(t *testing.T) {
	ctx := context.Background()
	ix, err := New(faultyEmbedder{dims: 32}, Options{Logger: logger.Discard()})
	require.NoError(t, err)

	n, err := ix.Add(ctx, products())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	results := ix.Search(ctx, "iPhone 15 Pro Max 256GB titan tự nhiên", 5)
	require.Len(t, results, 5)
	// Hash vectors match exact text.
	assert.Equal(t, "iPhone 15 Pro Max", results[0].Metadata["title"])
	assert.InDelta(t, 0.0, results[0].Distance, 1e-4)
}

func TestIndex_Batches(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, Options{BatchSize: 2})

	var docs []Input
	for i := 0; i < 7; i++ {
		docs = append(docs, Input{Content: strings.Repeat("x", i+1)})
	}
	n, err := ix.Add(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 7, ix.Count())
}

func TestIndex_AddCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ix := newTestIndex(t, Options{})

	n, err := ix.Add(ctx, products())
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, ix.Count())
}

func TestIndex_Rebuild(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, Options{})
	_, err := ix.Add(ctx, products())
	require.NoError(t, err)

	require.NoError(t, ix.Rebuild(ctx))
	assert.Equal(t, 0, ix.Count())
	assert.Empty(t, ix.Search(ctx, "iphone", 5))

	_, err = ix.Add(ctx, products()[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Count())
}

func TestIndex_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ix := newTestIndex(t, Options{Path: dir, Collection: "Shop Products!"})
	assert.Equal(t, "shop_products", ix.Name())
	_, err := ix.Add(ctx, products())
	require.NoError(t, err)

	reopened := newTestIndex(t, Options{Path: dir, Collection: "Shop Products!"})
	assert.Equal(t, 5, reopened.Count())
	results := reopened.Search(ctx, "Samsung Galaxy S24 Ultra 512GB", 1)
	require.Len(t, results, 1)
	assert.Equal(t, "Galaxy S24 Ultra", results[0].Metadata["title"])
}

func TestIndex_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := ix.Add(ctx, products())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_ = ix.Search(ctx, "iphone", 3)
		}()
	}
	wg.Wait()
	assert.Equal(t, 40, ix.Count())
}

func TestSanitizeCollectionName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"products", "products"},
		{"My Products", "my_products"},
		{"__shop-items__", "shop_items"},
		{"Hoàng Hà", "ho_ng_h"},
		{"a.b/c", "a_b_c"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeCollectionName(tt.in), "input %q", tt.in)
	}
}

func TestPrepareMetadata(t *testing.T) {
	long := strings.Repeat("á", MaxMetadataValueLen+20)
	md := prepareMetadata(map[string]any{
		"content": "dropped",
		"nil":     nil,
		"price":   1500000,
		"ok":      true,
		"long":    long,
		"exact":   strings.Repeat("b", MaxMetadataValueLen),
	})

	assert.NotContains(t, md, "content")
	assert.NotContains(t, md, "nil")
	assert.Equal(t, "1500000", md["price"])
	assert.Equal(t, "true", md["ok"])
	assert.Equal(t, strings.Repeat("á", MaxMetadataValueLen)+TruncationMarker, md["long"])
	assert.Equal(t, strings.Repeat("b", MaxMetadataValueLen), md["exact"])
}

func TestNewResult(t *testing.T) {
	r := newResult("id", "c", nil, 0.87654)
	assert.InDelta(t, 0.12346, r.Distance, 1e-5)
	assert.Equal(t, 0.877, r.RelevanceScore)

	// Similarity rounding above 1 never yields a negative distance.
	r = newResult("id", "c", nil, 1.0000001)
	assert.Equal(t, 0.0, r.Distance)
	assert.Equal(t, 1.0, r.RelevanceScore)
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]Result{{
		Content:        "iPhone 15 Pro Max 256GB",
		Metadata:       map[string]string{"title": "iPhone 15 Pro Max", "current_price": "29.990.000đ"},
		RelevanceScore: 0.912,
	}})
	assert.Contains(t, out, "relevance: 0.912")
	assert.Contains(t, out, "Title: iPhone 15 Pro Max")
	assert.Contains(t, out, "Price: 29.990.000đ")

	assert.Equal(t, "No results found.", FormatResults(nil))
}
