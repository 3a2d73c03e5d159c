package embeddings

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/shopagent/internal/logger"
)

// Fallback wraps a primary Embedder and substitutes hash vectors of the same
// length whenever the primary fails. Embed on a Fallback never returns an
// error.
type Fallback struct {
	primary Embedder
	hash    *HashEmbedder
	log     logger.Logger
}

// NewFallback wraps primary. A nil primary makes the Fallback hash-only.
func NewFallback(primary Embedder, log logger.Logger) *Fallback {
	dims := DefaultHashDimensions
	if primary != nil {
		dims = primary.Dimensions()
	}
	if log == nil {
		log = logger.Default()
	}
	return &Fallback{
		primary: primary,
		hash:    NewHashEmbedder(dims),
		log:     log,
	}
}

func (f *Fallback) Name() string {
	if f.primary == nil {
		return f.hash.Name()
	}
	return f.primary.Name()
}

func (f *Fallback) Dimensions() int { return f.hash.Dimensions() }

func (f *Fallback) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if f.primary != nil {
		vecs, err := f.primary.Embed(ctx, texts)
		if err == nil {
			err = f.check(vecs, len(texts))
		}
		if err == nil {
			return vecs, nil
		}
		f.log.Warn("embedding provider failed, using hash embeddings",
			"provider", f.primary.Name(), "texts", len(texts), "err", err)
	}
	return f.hash.Embed(ctx, texts)
}

func (f *Fallback) check(vecs [][]float32, want int) error {
	if len(vecs) != want {
		return fmt.Errorf("got %d vectors for %d texts", len(vecs), want)
	}
	for _, v := range vecs {
		if len(v) != f.hash.Dimensions() {
			return fmt.Errorf("got vector of length %d, expected %d", len(v), f.hash.Dimensions())
		}
	}
	return nil
}
