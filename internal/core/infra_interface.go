package core

import (
	"context"
	"errors"

	"github.com/markdave123-py/fiscalextract/internal/models"
)

// ErrNoText is returned when a document yields no extractable text (scanned images, empty files).
var ErrNoText = errors.New("document has no extractable text")

// DbClient defines all persistence operations the service needs.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateOperator(ctx context.Context, op *models.Operator) error
	GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error)

	// SaveExtraction inserts the extraction and its items in a single transaction.
	SaveExtraction(ctx context.Context, ex *models.Extraction, items []models.OrderItem) error
	GetExtraction(ctx context.Context, id string) (*models.Extraction, error)
	ListExtractionsByOperator(ctx context.Context, operatorID string) ([]models.Extraction, error)
	ListOrderItems(ctx context.Context, extractionID string) ([]models.OrderItem, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// The bucket is fixed when the client is built.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, key string) error
}

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (string, error)
}
