package ingest

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/shopagent/internal/logger"
	"github.com/ziadkadry99/shopagent/internal/progress"
	"github.com/ziadkadry99/shopagent/internal/vectordb"
)

// DefaultBatchSize is the number of documents stored per Add call.
const DefaultBatchSize = 20

// SmokeQueries are searched after a build to confirm the index answers.
var SmokeQueries = []string{"iPhone", "Samsung", "Nokia"}

// Builder stores documents into an index in batches.
type Builder struct {
	Store     vectordb.Store
	BatchSize int
	Rebuild   bool
	Progress  progress.Reporter
	Logger    logger.Logger
}

// Build optionally drops the collection, then adds docs batch by batch. It
// returns how many documents were stored; on failure the count covers the
// batches that made it in.
func (b *Builder) Build(ctx context.Context, docs []vectordb.Input) (int, error) {
	log := b.Logger
	if log == nil {
		log = logger.Default()
	}
	rep := b.Progress
	if rep == nil {
		rep = progress.Nop{}
	}
	size := b.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	if b.Rebuild {
		if err := b.Store.Rebuild(ctx); err != nil {
			return 0, fmt.Errorf("rebuild: %w", err)
		}
	}

	rep.Start(len(docs))
	defer rep.Finish()

	added := 0
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		n, err := b.Store.Add(ctx, docs[start:end])
		added += n
		if err != nil {
			return added, fmt.Errorf("adding documents %d-%d: %w", start+1, end, err)
		}
		rep.Update(end, fmt.Sprintf("batch %d", start/size+1))
		log.Debug("stored batch", "from", start+1, "to", end)
	}
	return added, nil
}

// SmokeResult is the outcome of one post-build search.
type SmokeResult struct {
	Query    string
	Hits     int
	TopTitle string
}

// Smoke runs SmokeQueries against s, two results each.
func Smoke(ctx context.Context, s vectordb.Searcher) []SmokeResult {
	out := make([]SmokeResult, 0, len(SmokeQueries))
	for _, q := range SmokeQueries {
		res := s.Search(ctx, q, 2)
		r := SmokeResult{Query: q, Hits: len(res), TopTitle: "N/A"}
		if len(res) > 0 {
			if t := res[0].Metadata[ColTitle]; t != "" {
				r.TopTitle = t
			}
		}
		out = append(out, r)
	}
	return out
}
