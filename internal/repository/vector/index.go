package vector

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"priceSense/domain"
	"priceSense/pkg/config"
	"priceSense/pkg/logger"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "products"

// Index is an in-process similarity index over the product catalog.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection

	mu    sync.RWMutex
	items map[string]domain.CandidateItem
}

// EmbeddingFunc picks OpenAI embeddings when a key is configured and Ollama
// otherwise.
func EmbeddingFunc(cfg config.EmbeddingConfig) chromem.EmbeddingFunc {
	if cfg.OpenAIKey != "" {
		return chromem.NewEmbeddingFuncOpenAI(cfg.OpenAIKey, chromem.EmbeddingModelOpenAI3Small)
	}
	return chromem.NewEmbeddingFuncOllama(cfg.OllamaModel, cfg.OllamaURL)
}

// NewIndex opens the index. An empty persistPath keeps it in memory.
func NewIndex(persistPath string, embed chromem.EmbeddingFunc) (*Index, error) {
	var db *chromem.DB
	if persistPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(filepath.Join(persistPath, "catalog.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Index{
		db:         db,
		collection: collection,
		items:      make(map[string]domain.CandidateItem),
	}, nil
}

// Load indexes the items. Only items not indexed before are embedded; the
// rest are rewritten with their stored embedding so their metadata follows
// the catalog.
func (x *Index) Load(ctx context.Context, items []domain.CandidateItem) error {
	docs := make([]chromem.Document, 0, len(items))
	fresh := 0

	x.mu.Lock()
	for _, it := range items {
		doc := chromem.Document{
			ID:       it.ID,
			Content:  content(it),
			Metadata: metadata(it),
		}
		if existing, err := x.collection.GetByID(ctx, it.ID); err == nil && existing.Content == doc.Content {
			doc.Embedding = existing.Embedding
		} else {
			fresh++
		}
		docs = append(docs, doc)
		x.items[it.ID] = it
	}
	x.mu.Unlock()

	if len(docs) == 0 {
		return nil
	}
	if err := x.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("index %d products: %w", len(docs), err)
	}

	logger.Info("catalog_indexed", "embedded", fresh, "total", x.collection.Count())
	return nil
}

// Search returns up to topK items whose similarity to query is at least
// threshold, most similar first.
func (x *Index) Search(ctx context.Context, query string, filters domain.SearchFilters, topK int, threshold float64) ([]domain.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	n := min(topK, x.collection.Count())
	if n <= 0 {
		return []domain.SearchHit{}, nil
	}

	where := map[string]string{"in_stock": "true"}
	if filters.Category != "" {
		where["category"] = strings.ToLower(filters.Category)
	}
	if filters.FinancingRequired {
		where["financing_available"] = "true"
	}

	results, err := x.collection.Query(ctx, query, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]domain.SearchHit, 0, len(results))
	for _, r := range results {
		sim := float64(r.Similarity)
		if sim < threshold {
			continue
		}
		item, ok := x.items[r.ID]
		if !ok {
			continue
		}
		if filters.MaxPrice != nil && item.Price > *filters.MaxPrice {
			continue
		}
		hits = append(hits, domain.SearchHit{Item: item, Similarity: sim})
	}
	return hits, nil
}

func (x *Index) Count() int {
	return x.collection.Count()
}

func content(it domain.CandidateItem) string {
	return strings.TrimSpace(it.Name + ". " + it.Description + " " + it.Category)
}

func metadata(it domain.CandidateItem) map[string]string {
	return map[string]string{
		"category":            strings.ToLower(it.Category),
		"cluster_id":          it.ClusterID,
		"price":               strconv.FormatFloat(it.Price, 'f', 2, 64),
		"in_stock":            strconv.FormatBool(it.InStock),
		"financing_available": strconv.FormatBool(it.FinancingAvailable),
	}
}
