// Package coretest provides in-memory implementations of the core interfaces for tests.
package coretest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/markdave123-py/fiscalextract/internal/core"
	db "github.com/markdave123-py/fiscalextract/internal/core/database"
	"github.com/markdave123-py/fiscalextract/internal/models"
)

var (
	_ core.DbClient      = (*DB)(nil)
	_ core.ObjectClient  = (*Objects)(nil)
	_ core.TextExtractor = (*Extractor)(nil)
)

// DB keeps rows in maps. Lookups that miss return db.ErrNotFound like the Postgres client.
type DB struct {
	mu          sync.Mutex
	operators   map[string]models.Operator
	extractions map[string]models.Extraction
	items       map[string][]models.OrderItem

	// SaveErr, when set, fails every SaveExtraction call.
	SaveErr error
	// Saves counts SaveExtraction calls, failed ones included.
	Saves int
}

func NewDB() *DB {
	return &DB{
		operators:   map[string]models.Operator{},
		extractions: map[string]models.Extraction{},
		items:       map[string][]models.OrderItem{},
	}
}

func (d *DB) CreateOperator(_ context.Context, op *models.Operator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, o := range d.operators {
		if o.Email == op.Email {
			return errors.New("duplicate email")
		}
	}
	d.operators[op.ID] = *op
	return nil
}

func (d *DB) GetOperatorByEmail(_ context.Context, email string) (*models.Operator, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, o := range d.operators {
		if o.Email == email {
			return &o, nil
		}
	}
	return nil, db.ErrNotFound
}

func (d *DB) SaveExtraction(_ context.Context, ex *models.Extraction, items []models.OrderItem) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Saves++
	if d.SaveErr != nil {
		return d.SaveErr
	}
	ex.ItemCount = len(items)
	d.extractions[ex.ID] = *ex
	d.items[ex.ID] = append([]models.OrderItem(nil), items...)
	return nil
}

func (d *DB) GetExtraction(_ context.Context, id string) (*models.Extraction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ex, ok := d.extractions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &ex, nil
}

func (d *DB) ListExtractionsByOperator(_ context.Context, operatorID string) ([]models.Extraction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []models.Extraction{}
	for _, ex := range d.extractions {
		if ex.OperatorID == operatorID {
			ex.RawText = ""
			out = append(out, ex)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (d *DB) ListOrderItems(_ context.Context, extractionID string) ([]models.OrderItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.OrderItem{}, d.items[extractionID]...), nil
}

func (d *DB) Close() error { return nil }

// Objects stores uploads by key.
type Objects struct {
	mu    sync.Mutex
	files map[string][]byte

	UploadErr error
}

func NewObjects() *Objects {
	return &Objects{files: map[string][]byte{}}
}

func (o *Objects) UploadFile(_ context.Context, key string, data []byte, _ string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.UploadErr != nil {
		return "", o.UploadErr
	}
	o.files[key] = append([]byte(nil), data...)
	return "mem://" + key, nil
}

func (o *Objects) DeleteFile(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.files, key)
	return nil
}

// Has reports whether key is stored.
func (o *Objects) Has(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.files[key]
	return ok
}

// Extractor returns Text, or Err when set, for any input.
type Extractor struct {
	Text string
	Err  error
}

func (e *Extractor) ExtractText(context.Context, []byte, string) (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	if e.Text == "" {
		return "", core.ErrNoText
	}
	return e.Text, nil
}
