// Package retrieval indexes repository files and finds the ones related to a
// query or a diff with BM25 keyword search.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"
)

const (
	// DefaultResults is the result count used when k is not positive.
	DefaultResults = 5
	// DiffResults is the default result count of SearchForDiff.
	DiffResults = 3
	// DiffQueryPrefix starts every diff query.
	DiffQueryPrefix = "Code related to:\n"
)

// Document is one indexed file.
type Document struct {
	ID        string
	Path      string
	Content   string
	IndexedAt time.Time
}

// Result is a search hit. Score lies in [0,1); higher is more relevant.
type Result struct {
	Path    string  `json:"path"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// DocumentID derives the document id of a path.
func DocumentID(path string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(path)
}

// Index is an in-memory BM25 index, optionally backed by a Store so its
// documents survive restarts. It is safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	idx   bleve.Index
	store *Store
	log   *zap.Logger
}

// NewIndex creates an index. When store is non-nil its documents are loaded
// into the index and every change is written through to it.
func NewIndex(ctx context.Context, store *Store, log *zap.Logger) (*Index, error) {
	if log == nil {
		log = zap.NewNop()
	}
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieval index: %w", err)
	}
	ix := &Index{idx: idx, store: store, log: log}

	if store != nil {
		docs, err := store.All(ctx)
		if err != nil {
			_ = idx.Close()
			return nil, err
		}
		if err := ix.batch(docs); err != nil {
			_ = idx.Close()
			return nil, err
		}
		log.Info("retrieval index restored", zap.Int("documents", len(docs)))
	}
	return ix, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	pathField.Store = true
	pathField.Index = true
	doc.AddFieldMappingsAt("path", pathField)

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true
	contentField.Index = true
	doc.AddFieldMappingsAt("content", contentField)

	im.DefaultMapping = doc
	return im
}

func (ix *Index) batch(docs []Document) error {
	b := ix.idx.NewBatch()
	for _, d := range docs {
		if err := b.Index(d.ID, map[string]any{"path": d.Path, "content": d.Content}); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", d.Path, err)
		}
	}
	return ix.idx.Batch(b)
}

// IndexFiles adds or replaces one document per path and returns their ids in path order.
func (ix *Index) IndexFiles(ctx context.Context, files map[string]string) ([]string, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	now := time.Now().UTC()
	docs := make([]Document, 0, len(paths))
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		id := DocumentID(p)
		docs = append(docs, Document{ID: id, Path: p, Content: files[p], IndexedAt: now})
		ids = append(ids, id)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.store != nil {
		if err := ix.store.Put(ctx, docs); err != nil {
			return nil, err
		}
	}
	if err := ix.batch(docs); err != nil {
		return nil, fmt.Errorf("failed to index files: %w", err)
	}
	ix.log.Debug("indexed files", zap.Int("count", len(docs)))
	return ids, nil
}

// Search returns up to k documents matching query, best first.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = DefaultResults
	}
	if strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = k
	req.Fields = []string{"path", "content"}

	ix.mu.RLock()
	res, err := ix.idx.SearchInContext(ctx, req)
	ix.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("retrieval search failed: %w", err)
	}

	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := Result{Score: normalize(hit.Score)}
		r.Path, _ = hit.Fields["path"].(string)
		r.Content, _ = hit.Fields["content"].(string)
		out = append(out, r)
	}
	return out, nil
}

// SearchForDiff finds the k files most related to a diff (DiffResults when k is not positive).
func (ix *Index) SearchForDiff(ctx context.Context, diff string, k int) ([]Result, error) {
	if strings.TrimSpace(diff) == "" {
		return []Result{}, nil
	}
	if k <= 0 {
		k = DiffResults
	}
	return ix.Search(ctx, DiffQueryPrefix+diff, k)
}

// Count returns the number of indexed documents.
func (ix *Index) Count() (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n, err := ix.idx.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(n), nil
}

// Clear drops every document.
func (ix *Index) Clear(ctx context.Context) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to reset retrieval index: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.store != nil {
		if err := ix.store.Clear(ctx); err != nil {
			_ = fresh.Close()
			return err
		}
	}
	old := ix.idx
	ix.idx = fresh
	return old.Close()
}

// Close releases the index and its store.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	err := ix.idx.Close()
	if ix.store != nil {
		if serr := ix.store.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// normalize maps a non-negative BM25 score into [0,1) keeping the order.
func normalize(s float64) float64 {
	if s <= 0 {
		return 0
	}
	return s / (1 + s)
}
