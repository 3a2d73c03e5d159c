package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// DefaultHashDimensions is used when a HashEmbedder is built without a size.
const DefaultHashDimensions = 384

// HashEmbedder derives a deterministic unit vector from the SHA-256 digest
// of the text. It needs no network and never fails, but carries no semantic
// meaning beyond exact-text identity.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of length dims.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

func (h *HashEmbedder) Name() string { return "hash" }

func (h *HashEmbedder) Dimensions() int { return h.dims }

func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.Vector(t)
	}
	return out, nil
}

// Vector expands sha256(text || counter) blocks into dims components in
// [-1, 1] and L2-normalizes the result.
func (h *HashEmbedder) Vector(text string) []float32 {
	vec := make([]float32, h.dims)
	var (
		block   [sha256.Size]byte
		counter [4]byte
		off     = sha256.Size
		seq     uint32
	)
	for i := range vec {
		if off+4 > sha256.Size {
			binary.BigEndian.PutUint32(counter[:], seq)
			seq++
			hasher := sha256.New()
			hasher.Write([]byte(text))
			hasher.Write(counter[:])
			hasher.Sum(block[:0])
			off = 0
		}
		u := binary.BigEndian.Uint32(block[off : off+4])
		off += 4
		vec[i] = float32(float64(u)/math.MaxUint32*2 - 1)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
