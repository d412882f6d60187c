package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/markdave123-py/fiscalextract/internal/config"
	"github.com/markdave123-py/fiscalextract/internal/core"
	"github.com/markdave123-py/fiscalextract/internal/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

type DatabaseClient struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("database ready")

	return &DatabaseClient{db: db, logger: logger}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Operators

func (c *DatabaseClient) CreateOperator(ctx context.Context, op *models.Operator) error {
	if op == nil {
		return errors.New("nil operator")
	}
	const q = `
		INSERT INTO operators (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := c.db.ExecContext(ctx, q,
		op.ID, op.Name, op.Email, op.PasswordHash, orNow(op.CreatedAt), orNow(op.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert operator: %w", err)
	}
	return nil
}

func (c *DatabaseClient) GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error) {
	const q = `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM operators WHERE email = $1
	`
	var o models.Operator
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&o.ID, &o.Name, &o.Email, &o.PasswordHash, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get operator: %w", err)
	}
	return &o, nil
}

// Extractions

// SaveExtraction inserts the extraction row and its items in a single transaction.
func (c *DatabaseClient) SaveExtraction(ctx context.Context, ex *models.Extraction, items []models.OrderItem) error {
	if ex == nil {
		return errors.New("nil extraction")
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const qx = `
		INSERT INTO extractions
			(id, operator_id, file_name, storage_url, content_type, doc_type, status, data, raw_text, item_count, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	data := ex.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	if _, err := tx.ExecContext(ctx, qx,
		ex.ID, nullable(ex.OperatorID), ex.FileName, ex.StorageURL, ex.ContentType, ex.DocType, ex.Status,
		string(data), ex.RawText, len(items), orNow(ex.CreatedAt), orNow(ex.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert extraction: %w", err)
	}

	if len(items) > 0 {
		const qi = `
			INSERT INTO order_items
				(id, extraction_id, position, code, tax_type, start_period, end_period, due_date,
				 original_value, current_balance, fine, interest, saldo_devedor_consolidado,
				 status, cno, cnpj, denominacao, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		`
		stmt, err := tx.PrepareContext(ctx, qi)
		if err != nil {
			return fmt.Errorf("prepare items: %w", err)
		}
		defer stmt.Close()

		for i := range items {
			it := &items[i]
			if _, err := stmt.ExecContext(ctx,
				it.ID, ex.ID, i, it.Code, it.TaxType, it.StartPeriod, it.EndPeriod, it.DueDate,
				it.OriginalValue, it.CurrentBalance, it.Fine, it.Interest, it.SaldoDevedorConsolidado,
				it.Status, it.CNO, it.CNPJ, it.Denominacao, orNow(it.CreatedAt),
			); err != nil {
				return fmt.Errorf("insert item %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	ex.ItemCount = len(items)
	return nil
}

const extractionColumns = `id, operator_id, file_name, storage_url, content_type, doc_type, status, data, raw_text, item_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExtraction(row rowScanner) (*models.Extraction, error) {
	var (
		e        models.Extraction
		operator sql.NullString
		data     []byte
	)
	if err := row.Scan(
		&e.ID, &operator, &e.FileName, &e.StorageURL, &e.ContentType, &e.DocType, &e.Status,
		&data, &e.RawText, &e.ItemCount, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.OperatorID = operator.String
	e.Data = data
	return &e, nil
}

func (c *DatabaseClient) GetExtraction(ctx context.Context, id string) (*models.Extraction, error) {
	q := `SELECT ` + extractionColumns + ` FROM extractions WHERE id = $1`
	e, err := scanExtraction(c.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get extraction: %w", err)
	}
	return e, nil
}

// ListExtractionsByOperator returns the operator's extractions, newest first, without raw text.
func (c *DatabaseClient) ListExtractionsByOperator(ctx context.Context, operatorID string) ([]models.Extraction, error) {
	q := `SELECT ` + extractionColumns + ` FROM extractions WHERE operator_id = $1 ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q, operatorID)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	out := []models.Extraction{}
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan extraction: %w", err)
		}
		e.RawText = ""
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) ListOrderItems(ctx context.Context, extractionID string) ([]models.OrderItem, error) {
	const q = `
		SELECT id, extraction_id, code, tax_type, start_period, end_period, due_date,
		       original_value, current_balance, fine, interest, saldo_devedor_consolidado,
		       status, cno, cnpj, denominacao, created_at
		FROM order_items
		WHERE extraction_id = $1
		ORDER BY position ASC
	`
	rows, err := c.db.QueryContext(ctx, q, extractionID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	out := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(
			&it.ID, &it.ExtractionID, &it.Code, &it.TaxType, &it.StartPeriod, &it.EndPeriod, &it.DueDate,
			&it.OriginalValue, &it.CurrentBalance, &it.Fine, &it.Interest, &it.SaldoDevedorConsolidado,
			&it.Status, &it.CNO, &it.CNPJ, &it.Denominacao, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
