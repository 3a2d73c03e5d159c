package vectordb

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxMetadataValueLen bounds stored metadata values; longer values are cut
// and suffixed with TruncationMarker.
const MaxMetadataValueLen = 500

// TruncationMarker is appended to truncated metadata values.
const TruncationMarker = "..."

// Input is a document handed to Index.Add. Metadata values may be of any
// type and are stringified before storage.
type Input struct {
	Content  string
	Metadata map[string]any
}

// Document is a stored vector entry. Documents are immutable once added.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Result is a single similarity match.
type Result struct {
	ID             string            `json:"id"`
	Content        string            `json:"content"`
	Metadata       map[string]string `json:"metadata"`
	Distance       float64           `json:"distance"`
	RelevanceScore float64           `json:"relevance_score"`
}

// newResult converts a cosine similarity into distance and relevance.
func newResult(id, content string, md map[string]string, similarity float32) Result {
	distance := 1 - float64(similarity)
	if distance < 0 {
		distance = 0
	}
	return Result{
		ID:             id,
		Content:        content,
		Metadata:       md,
		Distance:       distance,
		RelevanceScore: roundTo(1-distance, 3),
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

var invalidCollectionChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeCollectionName replaces characters outside [a-zA-Z0-9_] with '_',
// strips leading and trailing underscores and lower-cases the result.
func SanitizeCollectionName(name string) string {
	name = invalidCollectionChars.ReplaceAllString(name, "_")
	return strings.ToLower(strings.Trim(name, "_"))
}

// prepareMetadata stringifies values, drops nil values and the "content"
// key, and truncates anything longer than MaxMetadataValueLen runes.
func prepareMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if k == "content" || v == nil {
			continue
		}
		out[k] = truncate(stringify(v))
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxMetadataValueLen {
		return s
	}
	r := []rune(s)
	return string(r[:MaxMetadataValueLen]) + TruncationMarker
}
