package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/fiscalextract/internal/core"
	objectclient "github.com/markdave123-py/fiscalextract/internal/core/object-client"
	"github.com/markdave123-py/fiscalextract/internal/envelope"
	"github.com/markdave123-py/fiscalextract/internal/models"
	"github.com/markdave123-py/fiscalextract/internal/orders"
)

var _ Ingestor = (*ExtractionIngestor)(nil)

// ErrStopped is returned by Enqueue once the workers have exited.
var ErrStopped = errors.New("ingestor stopped")

// NewExtractionIngestor constructs the ingestor with a bounded job queue (64 by default).
func NewExtractionIngestor(db core.DbClient, obj core.ObjectClient, cfg IngestConfig, logger *zap.Logger) *ExtractionIngestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractionIngestor{
		db: db, obj: obj, cfg: cfg, logger: logger,
		jobs: make(chan Job, cfg.QueueSize),
		done: make(chan struct{}),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel until ctx is cancelled.
func (i *ExtractionIngestor) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}

	var g errgroup.Group
	for w := 1; w <= numWorkers; w++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					n := i.drain(ctx, w)
					i.logger.Info("ingestor worker shutting down", zap.Int("worker", w), zap.Int("drained", n))
					return nil
				case job := <-i.jobs:
					i.run(ctx, job, w)
				}
			}
		})
	}

	go func() {
		_ = g.Wait()
		i.stopped.Store(true)
		if n := len(i.jobs); n > 0 {
			i.logger.Warn("ingestor stopped with queued jobs", zap.Int("dropped", n))
		}
		close(i.done)
	}()
}

func (i *ExtractionIngestor) run(ctx context.Context, job Job, worker int) {
	i.logger.Info("processing extraction",
		zap.String("extraction_id", job.Extraction.ID), zap.Int("worker", worker))

	if err := i.ProcessOne(ctx, job); err != nil {
		i.logger.Error("extraction ingest failed",
			zap.String("extraction_id", job.Extraction.ID), zap.Error(err))
	}
}

// drain processes whatever is still queued once shutdown begins. ProcessOne detaches
// from ctx, so the work completes after cancellation.
func (i *ExtractionIngestor) drain(ctx context.Context, worker int) int {
	n := 0
	for {
		select {
		case job := <-i.jobs:
			i.run(ctx, job, worker)
			n++
		default:
			return n
		}
	}
}

// Wait blocks until every worker started by Start has returned.
func (i *ExtractionIngestor) Wait() {
	<-i.done
}

// Enqueue schedules a job. If the queue is full, it blocks until space frees up or ctx ends.
func (i *ExtractionIngestor) Enqueue(ctx context.Context, job Job) error {
	if job.Extraction == nil || job.Extraction.ID == "" {
		return errors.New("job has no extraction id")
	}
	if i.stopped.Load() {
		return ErrStopped
	}
	select {
	case i.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessOne archives, validates and stores one job. On failure the extraction is still
// recorded, with status failed and no items.
func (i *ExtractionIngestor) ProcessOne(ctx context.Context, job Job) error {
	// own deadline so an ended request or shutdown does not cut a transaction short
	proctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.cfg.JobTimeout)
	defer cancel()

	ex := job.Extraction
	if ex.Status == "" {
		ex.Status = models.StatusReceived
	}

	err := i.process(proctx, job)
	if err == nil {
		return nil
	}

	ex.Status = models.StatusFailed
	if saveErr := i.db.SaveExtraction(proctx, ex, nil); saveErr != nil {
		i.logger.Warn("recording failed extraction", zap.String("extraction_id", ex.ID), zap.Error(saveErr))
	}
	return err
}

func (i *ExtractionIngestor) process(ctx context.Context, job Job) error {
	ex := job.Extraction

	var key string
	if i.obj != nil {
		key = objectclient.ArchiveKey(ex.ID, ex.FileName)
		url, err := i.obj.UploadFile(ctx, key, job.Document, ex.ContentType)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		ex.StorageURL = url
		ex.Status = models.StatusArchived
	}

	if err := envelope.Validate(job.Envelope); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	items := orders.FromExtraction(ex.ID, job.Result)
	ex.Status = models.StatusStored
	if err := i.db.SaveExtraction(ctx, ex, items); err != nil {
		i.cleanup(ctx, key)
		ex.StorageURL = ""
		return fmt.Errorf("store: %w", err)
	}

	i.logger.Info("extraction stored",
		zap.String("extraction_id", ex.ID),
		zap.String("doc_type", ex.DocType),
		zap.Int("items", len(items)),
	)
	return nil
}

// cleanup removes an archived object whose extraction could not be stored.
func (i *ExtractionIngestor) cleanup(ctx context.Context, key string) {
	if i.obj == nil || key == "" {
		return
	}
	if err := i.obj.DeleteFile(ctx, key); err != nil {
		i.logger.Warn("removing orphaned archive", zap.String("key", key), zap.Error(err))
	}
}
