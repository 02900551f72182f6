package kdvector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flarexio/kdvector/embedding"
	"github.com/flarexio/kdvector/index"
	"github.com/flarexio/kdvector/persistence"
	"github.com/flarexio/kdvector/textsplit"
)

// Service defines the core logic of kdvector.
type Service interface {

	// Close stops background work and saves unsaved changes.
	Close() error

	// Upload splits a document into chunks, embeds and indexes every chunk.
	Upload(ctx context.Context, text string) (*UploadResult, error)

	// Insert indexes a precomputed vector with opaque metadata.
	Insert(ctx context.Context, vector []float32, metadata string) (int, error)

	// Query embeds the text and returns its k nearest chunks.
	Query(ctx context.Context, text string, k int) ([]QueryResult, error)

	// QueryVector returns the k nearest points to a precomputed vector.
	QueryVector(ctx context.Context, vector []float32, k int) ([]QueryResult, error)

	// Metadata returns the metadata stored with a point.
	Metadata(ctx context.Context, id int) (string, error)

	// Clear drops every point; ids restart at zero.
	Clear(ctx context.Context) error

	// Stats reports the size and shape of the index.
	Stats(ctx context.Context) (*Stats, error)

	// Save writes a snapshot of the index.
	Save(ctx context.Context) error

	// Load replaces the index with the stored snapshot.
	Load(ctx context.Context) error
}

type ServiceMiddleware func(Service) Service

const defaultConcurrency = 4

func NewService(ctx context.Context, cfg Config,
	embedder embedding.Embedder, splitter textsplit.Splitter, store persistence.Store,
) (Service, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, cfg.Dimension)
	}

	if embedder != nil {
		if dim := embedder.Dimension(); dim > 0 && dim != cfg.Dimension {
			return nil, fmt.Errorf("%w: embedder produces %d, index expects %d",
				ErrDimensionMismatch, dim, cfg.Dimension)
		}
	}

	if splitter == nil {
		s, err := textsplit.NewSplitter(cfg.Splitter)
		if err != nil {
			return nil, err
		}

		splitter = s
	}

	concurrency := cfg.Embedding.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	log := zap.L().With(
		zap.String("service", "kdvector"),
	)

	ctx, cancel := context.WithCancel(ctx)

	svc := &service{
		index:       index.New(cfg.Dimension),
		embedder:    embedder,
		splitter:    splitter,
		store:       store,
		concurrency: concurrency,
		started:     time.Now(),

		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	if store != nil && store.Exists() {
		if err := svc.Load(ctx); err != nil {
			cancel()
			return nil, err
		}

		log.Info("snapshot loaded", zap.Int("size", svc.index.Size()))
	}

	if interval := cfg.SaveInterval.Duration(); store != nil && interval > 0 {
		go svc.autosave(ctx, interval)
	}

	return svc, nil
}

type service struct {
	// The index does no locking of its own. Inserts may rewrite any node on
	// the path a concurrent query is walking, so writers take mu exclusively.
	index *index.Index
	mu    sync.RWMutex
	dirty atomic.Bool

	embedder    embedding.Embedder
	splitter    textsplit.Splitter
	store       persistence.Store
	concurrency int
	started     time.Time

	cfg    Config
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func (svc *service) Close() error {
	if svc.cancel != nil {
		svc.cancel()
		svc.cancel = nil
	}

	if svc.store == nil || !svc.dirty.Load() {
		return nil
	}

	return svc.Save(context.Background())
}

func (svc *service) Upload(ctx context.Context, text string) (*UploadResult, error) {
	if svc.embedder == nil {
		return nil, ErrEmbedderNotSet
	}

	chunks := svc.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	// Embed every chunk before touching the index so a failed upload
	// inserts nothing.
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := svc.embed(gctx, chunk)
			if err != nil {
				return err
			}

			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	metadata := make([]string, len(chunks))
	for i, chunk := range chunks {
		bs, err := json.Marshal(&Chunk{Text: chunk})
		if err != nil {
			return nil, err
		}

		metadata[i] = string(bs)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	ids := make([]int, len(chunks))
	for i := range chunks {
		id, err := svc.index.Insert(vectors[i], metadata[i])
		if err != nil {
			return nil, err
		}

		ids[i] = id
	}

	svc.dirty.Store(true)

	return &UploadResult{
		IDs:    ids,
		Chunks: len(chunks),
	}, nil
}

func (svc *service) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := svc.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if len(vec) != svc.cfg.Dimension {
		return nil, fmt.Errorf("%w: embedder returned %d, expected %d",
			ErrDimensionMismatch, len(vec), svc.cfg.Dimension)
	}

	return vec, nil
}

func (svc *service) Insert(ctx context.Context, vector []float32, metadata string) (int, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	id, err := svc.index.Insert(vector, metadata)
	if err != nil {
		return 0, err
	}

	svc.dirty.Store(true)

	return id, nil
}

func (svc *service) Query(ctx context.Context, text string, k int) ([]QueryResult, error) {
	if svc.embedder == nil {
		return nil, ErrEmbedderNotSet
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	vec, err := svc.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	return svc.QueryVector(ctx, vec, k)
}

func (svc *service) QueryVector(ctx context.Context, vector []float32, k int) ([]QueryResult, error) {
	if k <= 0 {
		k = DefaultK
	}

	svc.mu.RLock()
	defer svc.mu.RUnlock()

	hits := svc.index.Query(vector, k)

	results := make([]QueryResult, len(hits))
	for i, hit := range hits {
		meta, _ := svc.index.Metadata(hit.ID)

		results[i] = QueryResult{
			ID:       hit.ID,
			Distance: hit.Distance,
			Metadata: parseMetadata(meta),
		}
	}

	return results, nil
}

func (svc *service) Metadata(ctx context.Context, id int) (string, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	meta, ok := svc.index.Metadata(id)
	if !ok {
		return "", ErrPointNotFound
	}

	return meta, nil
}

func (svc *service) Clear(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.index.Clear()
	svc.dirty.Store(true)

	return nil
}

func (svc *service) Stats(ctx context.Context) (*Stats, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	return &Stats{
		TotalVectors: svc.index.Size(),
		Dimension:    svc.index.Dimension(),
		Depth:        svc.index.Depth(),
		Uptime:       Duration(time.Since(svc.started)),
	}, nil
}

func (svc *service) Save(ctx context.Context) error {
	if svc.store == nil {
		return ErrSnapshotDisabled
	}

	// Persist only reads the index.
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	if err := svc.store.Save(ctx, svc.index); err != nil {
		return err
	}

	svc.dirty.Store(false)

	return nil
}

func (svc *service) Load(ctx context.Context) error {
	if svc.store == nil {
		return ErrSnapshotDisabled
	}

	restored := index.New(svc.cfg.Dimension)
	if err := svc.store.Load(ctx, restored); err != nil {
		return err
	}

	if restored.Dimension() != svc.cfg.Dimension {
		return fmt.Errorf("%w: snapshot has %d, expected %d",
			ErrDimensionMismatch, restored.Dimension(), svc.cfg.Dimension)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.index = restored
	svc.dirty.Store(false)

	return nil
}

func (svc *service) autosave(ctx context.Context, interval time.Duration) {
	log := svc.log.With(
		zap.String("action", "autosave"),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("done")
			return

		case <-ticker.C:
			if !svc.dirty.Load() {
				continue
			}

			if err := svc.Save(ctx); err != nil {
				log.Error(err.Error())
				continue
			}

			log.Info("snapshot saved")
		}
	}
}
