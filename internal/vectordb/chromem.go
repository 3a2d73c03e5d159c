package vectordb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/shopagent/internal/embeddings"
	"github.com/ziadkadry99/shopagent/internal/logger"
)

const (
	DefaultCollection = "products"
	DefaultK          = 5
	DefaultBatchSize  = 50

	insertConcurrency = 4
)

// Options configures an Index.
type Options struct {
	// Path is the persistence directory. Empty keeps the index in memory.
	Path       string
	Collection string
	DefaultK   int
	BatchSize  int
	Logger     logger.Logger
}

// Index is a chromem-go backed vector index. It is safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	db        *chromem.DB
	col       *chromem.Collection
	name      string
	embedder  embeddings.Embedder
	embedFunc chromem.EmbeddingFunc
	defaultK  int
	batchSize int
	log       logger.Logger
}

// New opens (or creates) the collection described by opts. The embedder is
// wrapped in an embeddings.Fallback so indexing and search never depend on
// the provider being reachable.
func New(embedder embeddings.Embedder, opts Options) (*Index, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	if _, ok := embedder.(*embeddings.Fallback); !ok {
		embedder = embeddings.NewFallback(embedder, log)
	}

	var (
		db  *chromem.DB
		err error
	)
	if opts.Path != "" {
		db, err = chromem.NewPersistentDB(opts.Path, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db at %s: %w", opts.Path, err)
		}
	} else {
		db = chromem.NewDB()
	}

	name := SanitizeCollectionName(opts.Collection)
	if name == "" {
		name = DefaultCollection
	}

	ix := &Index{
		db:        db,
		name:      name,
		embedder:  embedder,
		embedFunc: embeddings.ToChromemFunc(embedder),
		defaultK:  opts.DefaultK,
		batchSize: opts.BatchSize,
		log:       log.With("collection", name),
	}
	if ix.defaultK <= 0 {
		ix.defaultK = DefaultK
	}
	if ix.batchSize <= 0 {
		ix.batchSize = DefaultBatchSize
	}

	if err := ix.open(); err != nil {
		return nil, err
	}
	ix.log.Info("vector index ready", "documents", ix.col.Count(), "persistent", opts.Path != "")
	return ix, nil
}

func (ix *Index) open() error {
	col, err := ix.db.GetOrCreateCollection(ix.name, map[string]string{"description": "Product information"}, ix.embedFunc)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", ix.name, err)
	}
	ix.col = col
	return nil
}

// Name returns the sanitized collection name.
func (ix *Index) Name() string { return ix.name }

// Count returns the number of stored documents.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.col.Count()
}

// Add embeds and stores docs in batches. Each batch is embedded in full
// before any of it is inserted, and a failed insert removes the partial
// batch. Any failure aborts the call; batches already stored remain.
func (ix *Index) Add(ctx context.Context, docs []Input) (int, error) {
	added := 0
	for start := 0; start < len(docs); start += ix.batchSize {
		end := min(start+ix.batchSize, len(docs))
		n, err := ix.addBatch(ctx, docs[start:end])
		if err != nil {
			return added, fmt.Errorf("batch %d: %w", start/ix.batchSize+1, err)
		}
		added += n
		ix.log.Debug("added batch", "batch", start/ix.batchSize+1, "documents", n)
	}
	if added > 0 {
		ix.log.Info("documents added", "count", added)
	}
	return added, nil
}

func (ix *Index) addBatch(ctx context.Context, batch []Input) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	texts := make([]string, len(batch))
	for i, in := range batch {
		texts[i] = in.Content
	}
	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding: %w", err)
	}
	if len(vecs) != len(batch) {
		return 0, fmt.Errorf("embedding: got %d vectors for %d documents", len(vecs), len(batch))
	}

	docs := make([]chromem.Document, len(batch))
	ids := make([]string, len(batch))
	for i, in := range batch {
		ids[i] = uuid.NewString()
		docs[i] = chromem.Document{
			ID:        ids[i],
			Content:   in.Content,
			Metadata:  prepareMetadata(in.Metadata),
			Embedding: vecs[i],
		}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if err := ix.col.AddDocuments(ctx, docs, insertConcurrency); err != nil {
		if derr := ix.col.Delete(context.WithoutCancel(ctx), nil, nil, ids...); derr != nil {
			ix.log.Warn("rolling back partial batch failed", "err", derr)
		}
		return 0, fmt.Errorf("insert: %w", err)
	}
	return len(docs), nil
}

// Search returns up to k documents ordered by ascending distance. k <= 0
// uses the configured default. Faults are logged and yield no results.
func (ix *Index) Search(ctx context.Context, query string, k int) []Result {
	if k <= 0 {
		k = ix.defaultK
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	count := ix.col.Count()
	if count == 0 {
		return []Result{}
	}
	k = min(k, count)

	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) != 1 || len(vecs[0]) == 0 {
		ix.log.Error("vector search embedding failed", "err", err)
		return []Result{}
	}

	matches, err := ix.col.QueryEmbedding(ctx, vecs[0], k, nil, nil)
	if err != nil {
		ix.log.Error("vector search failed", "err", err)
		return []Result{}
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = newResult(m.ID, m.Content, m.Metadata, m.Similarity)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results
}

// Rebuild deletes and recreates the collection, dropping every document.
func (ix *Index) Rebuild(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.db.DeleteCollection(ix.name); err != nil {
		return fmt.Errorf("delete collection %s: %w", ix.name, err)
	}
	if err := ix.open(); err != nil {
		return err
	}
	ix.log.Info("collection rebuilt")
	return nil
}
