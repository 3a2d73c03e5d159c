package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/shopagent/internal/logger"
)

type failingEmbedder struct {
	dims  int
	calls atomic.Int32
}

func (f *failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	f.calls.Add(1)
	return nil, errors.New("provider unavailable")
}
func (f *failingEmbedder) Dimensions() int { return f.dims }
func (f *failingEmbedder) Name() string    { return "failing" }

type countingEmbedder struct {
	inner Embedder
	calls atomic.Int32
	texts atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int32(len(texts)))
	return c.inner.Embed(ctx, texts)
}
func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *countingEmbedder) Name() string    { return "counting" }

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	h := NewHashEmbedder(100)
	a := h.Vector("iPhone 15 Pro Max")
	b := h.Vector("iPhone 15 Pro Max")
	c := h.Vector("Samsung Galaxy S24")

	assert.Len(t, a, 100)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
	assert.InDelta(t, 1.0, norm(c), 1e-5)
}

func TestHashEmbedder_DefaultDimensions(t *testing.T) {
	h := NewHashEmbedder(0)
	assert.Equal(t, DefaultHashDimensions, h.Dimensions())

	vecs, err := h.Embed(context.Background(), []string{"", "x"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], DefaultHashDimensions)
	assert.InDelta(t, 1.0, norm(vecs[0]), 1e-5)
}

func TestFallback_UsesHashOnFailure(t *testing.T) {
	primary := &failingEmbedder{dims: 48}
	f := NewFallback(primary, logger.Discard())

	vecs, err := f.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 48)
	}
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, 48, f.Dimensions())
	assert.Equal(t, "failing", f.Name())

	// Hash vectors are stable across calls.
	again, err := f.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, vecs[0], again[0])
}

func TestFallback_PassesThroughOnSuccess(t *testing.T) {
	primary := NewHashEmbedder(16)
	f := NewFallback(primary, logger.Discard())

	vecs, err := f.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, primary.Vector("hello"), vecs[0])
}

type shortEmbedder struct{}

func (shortEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 2}
	}
	return out, nil
}
func (shortEmbedder) Dimensions() int { return 8 }
func (shortEmbedder) Name() string    { return "short" }

func TestFallback_RejectsWrongLength(t *testing.T) {
	f := NewFallback(shortEmbedder{}, logger.Discard())
	vecs, err := f.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 8)
}

func TestFallback_NilPrimary(t *testing.T) {
	f := NewFallback(nil, logger.Discard())
	assert.Equal(t, "hash", f.Name())
	vecs, err := f.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vecs[0], DefaultHashDimensions)
}

func TestCached_ReusesEmbeddings(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashEmbedder(8)}
	c, err := NewCached(inner, 10)
	require.NoError(t, err)

	first, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	second, err := c.Embed(context.Background(), []string{"b", "a", "c"})
	require.NoError(t, err)

	assert.Equal(t, first[0], second[1])
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, int32(3), inner.texts.Load())
	assert.Equal(t, 3, c.Len())

	// Mutating a returned vector must not poison the cache.
	second[0][0] = 42
	third, err := c.Embed(context.Background(), []string{"b"})
	require.NoError(t, err)
	assert.NotEqual(t, float32(42), third[0][0])
}

func TestCached_DoesNotStoreFailures(t *testing.T) {
	inner := &failingEmbedder{dims: 4}
	c, err := NewCached(inner, 10)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestToChromemFunc(t *testing.T) {
	fn := ToChromemFunc(NewHashEmbedder(12))
	v, err := fn(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, v, 12)

	_, err = ToChromemFunc(&failingEmbedder{dims: 3})(context.Background(), "text")
	assert.Error(t, err)
}

func TestGoogleEmbedder_Concurrent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Contains(t, r.URL.Path, "gemini-embedding-001:embedContent")
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		var req googleEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		text := req.Content.Parts[0].Text
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{float32(len(text)), 1}},
		})
	}))
	defer srv.Close()

	e := NewGoogleEmbedder("k", "")
	e.baseURL = srv.URL

	vecs, err := e.Embed(context.Background(), []string{"a", "bbb", "cc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(3), vecs[1][0])
	assert.Equal(t, float32(2), vecs[2][0])
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 3072, e.Dimensions())
}

func TestGoogleEmbedder_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewGoogleEmbedder("k", ModelTextEmbedding004)
	e.baseURL = srv.URL

	_, err := e.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, 768, e.Dimensions())
}

func TestOllamaEmbedder_Batch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		out := make([][]float32, len(req.Input))
		for i, s := range req.Input {
			out[i] = []float32{float32(len(s))}
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: out})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 1, srv.URL)
	vecs, err := e.Embed(context.Background(), []string{"ab", "abcd"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {4}}, vecs)
	assert.Equal(t, "ollama/nomic-embed-text", e.Name())
}

func TestOllamaEmbedder_DetectDimensions(t *testing.T) {
	t.Run("Should adopt the size the model returns", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{make([]float32, 1024)}})
		}))
		defer srv.Close()

		e := NewOllamaEmbedder("mxbai-embed-large", 0, srv.URL)
		assert.Equal(t, DefaultOllamaDimensions, e.Dimensions())
		dims, err := e.DetectDimensions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1024, dims)
		assert.Equal(t, 1024, e.Dimensions())
	})

	t.Run("Should keep the configured size when the model is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		e := NewOllamaEmbedder("missing", 384, srv.URL)
		dims, err := e.DetectDimensions(context.Background())
		require.Error(t, err)
		assert.Equal(t, 384, dims)
		assert.Equal(t, 384, e.Dimensions())
	})
}

func TestOpenAIEmbedder_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[2,2]},
			{"object":"embedding","index":0,"embedding":[1,1]}
		]}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = srv.URL + "/v1"
	e := NewOpenAIEmbedderWithConfig(cfg, "")

	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 2}}, vecs)
	assert.Equal(t, 1536, e.Dimensions())
}
