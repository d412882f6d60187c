package ingestion_engine

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/markdave123-py/fiscalextract/internal/core"
	"github.com/markdave123-py/fiscalextract/internal/fiscal"
	"github.com/markdave123-py/fiscalextract/internal/models"
)

// IngestConfig tunes the background pipeline.
//
// QueueSize:  capacity of the in-memory job queue (64 when zero).
// JobTimeout: upper bound for one job, archive plus store (5m when zero).
type IngestConfig struct {
	QueueSize  int
	JobTimeout time.Duration
}

// Job is one uploaded document waiting to be archived and stored.
//
// Extraction: the row to insert; ID, FileName and ContentType must be set.
// Document:   the original upload bytes.
// Result:     what the engine extracted, mapped to order items on store.
// Envelope:   the encoded response body, validated before it is stored.
type Job struct {
	Extraction *models.Extraction
	Document   []byte
	Result     fiscal.Extraction
	Envelope   []byte
}

// ExtractionIngestor archives and persists extractions off the request path:
//
// db:     persistence for extractions and order items.
// obj:    archive storage for the uploaded PDFs; nil skips archival.
// cfg:    runtime tuning knobs for the pipeline.
// jobs:   in-memory queue of pending jobs.
type ExtractionIngestor struct {
	db      core.DbClient
	obj     core.ObjectClient
	cfg     IngestConfig
	logger  *zap.Logger
	jobs    chan Job
	done    chan struct{}
	stopped atomic.Bool
}

// DocconvExtractor implements core.TextExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}
