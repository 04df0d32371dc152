package vector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/config"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	milvusindex "github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

const (
	fieldDocumentID = "document_id"
	fieldDomain     = "domain"
	fieldEmbedding  = "embedding"
)

// MilvusStore keeps the global embedding index in a Milvus collection with
// COSINE similarity.
type MilvusStore struct {
	client     *milvusclient.Client
	collection string
	logger     *slog.Logger
}

// NewMilvusStore connects to Milvus. Call EnsureCollection before Search.
func NewMilvusStore(cfg config.MilvusConfig) (*MilvusStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to milvus at %s: %w", cfg.Address, err)
	}
	return &MilvusStore{
		client:     c,
		collection: cfg.Collection,
		logger:     slog.Default().With("component", "milvus-store", "collection", cfg.Collection),
	}, nil
}

// EnsureCollection creates the collection and its vector index when missing,
// then loads it into memory. It reports whether the collection was created.
func (s *MilvusStore) EnsureCollection(ctx context.Context, dim int) (bool, error) {
	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection))
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(s.collection).
			WithDescription("campus documents for semantic fallback").
			WithAutoID(true)
		schema.WithField(entity.NewField().
			WithName("id").
			WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true).
			WithIsAutoID(true))
		schema.WithField(entity.NewField().
			WithName(fieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim)))
		schema.WithField(entity.NewField().
			WithName(fieldDocumentID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(128))
		schema.WithField(entity.NewField().
			WithName(fieldDomain).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(32))

		if err := s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(s.collection, schema)); err != nil {
			return false, fmt.Errorf("creating collection %s: %w", s.collection, err)
		}
		idx := milvusindex.NewIvfFlatIndex(entity.COSINE, 128)
		task, err := s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(s.collection, fieldEmbedding, idx))
		if err != nil {
			return false, fmt.Errorf("creating index: %w", err)
		}
		if err := task.Await(ctx); err != nil {
			return false, fmt.Errorf("waiting for index creation: %w", err)
		}
		s.logger.Info("collection created", "dimension", dim)
	}

	loadTask, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.collection))
	if err != nil {
		return false, fmt.Errorf("loading collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return false, fmt.Errorf("waiting for collection load: %w", err)
	}
	return !exists, nil
}

// Insert writes one row per document. vecs[i] must embed docs[i].
func (s *MilvusStore) Insert(ctx context.Context, docs []*corpus.Document, vecs [][]float32) error {
	if len(docs) == 0 {
		return nil
	}
	if len(docs) != len(vecs) {
		return fmt.Errorf("insert: %d documents but %d vectors", len(docs), len(vecs))
	}
	ids := make([]string, len(docs))
	domains := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		domains[i] = string(d.Domain)
	}
	_, err := s.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(s.collection,
		column.NewColumnFloatVector(fieldEmbedding, len(vecs[0]), vecs),
		column.NewColumnVarChar(fieldDocumentID, ids),
		column.NewColumnVarChar(fieldDomain, domains),
	))
	if err != nil {
		return fmt.Errorf("inserting %d rows: %w", len(docs), err)
	}
	flushTask, err := s.client.Flush(ctx, milvusclient.NewFlushOption(s.collection))
	if err != nil {
		return fmt.Errorf("flushing collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("waiting for flush: %w", err)
	}
	return nil
}

func (s *MilvusStore) Search(ctx context.Context, vec []float32, k int, domains []corpus.Domain) ([]Match, error) {
	opt := milvusclient.NewSearchOption(s.collection, k, []entity.Vector{entity.FloatVector(vec)}).
		WithANNSField(fieldEmbedding).
		WithSearchParam("nprobe", "16").
		WithOutputFields(fieldDocumentID)
	if expr := domainFilter(domains); expr != "" {
		opt = opt.WithFilter(expr)
	}
	results, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	rs := results[0]
	matches := make([]Match, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		m := Match{Score: float64(rs.Scores[i])}
		for _, field := range rs.Fields {
			if col, ok := field.(*column.ColumnVarChar); ok && col.Name() == fieldDocumentID {
				m.ID = col.Data()[i]
			}
		}
		if m.ID != "" {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// Ping checks the connection by asking for the collection.
func (s *MilvusStore) Ping(ctx context.Context) error {
	_, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection))
	return err
}

func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func domainFilter(domains []corpus.Domain) string {
	if len(domains) == 0 {
		return ""
	}
	quoted := make([]string, len(domains))
	for i, d := range domains {
		quoted[i] = strconv.Quote(string(d))
	}
	return fieldDomain + " in [" + strings.Join(quoted, ", ") + "]"
}

// SyncMilvus creates the collection if needed and fills a newly created one
// from docs. An existing collection is trusted as is.
func SyncMilvus(ctx context.Context, s *MilvusStore, docs []*corpus.Document, emb Embedder, opts BuildOptions) error {
	created, err := s.EnsureCollection(ctx, emb.Dimension())
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	vecs, err := EmbedAll(ctx, docs, emb, opts)
	if err != nil {
		return err
	}
	return s.Insert(ctx, docs, vecs)
}
