package models

import (
	"encoding/json"
	"time"
)

// Operator is a back-office user allowed to browse stored extractions.
type Operator struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Extraction statuses, in pipeline order.
const (
	StatusReceived = "received"
	StatusArchived = "archived"
	StatusStored   = "stored"
	StatusFailed   = "failed"
)

// Extraction records one uploaded document and what the engine found in it.
type Extraction struct {
	ID          string          `db:"id" json:"id"`
	OperatorID  string          `db:"operator_id" json:"operator_id,omitempty"`
	FileName    string          `db:"file_name" json:"file_name"`
	StorageURL  string          `db:"storage_url" json:"storage_url,omitempty"` // S3 URL of the archived PDF
	ContentType string          `db:"content_type" json:"content_type"`
	DocType     string          `db:"doc_type" json:"doc_type"` // darf | fiscal_report
	Status      string          `db:"status" json:"status"`
	Data        json.RawMessage `db:"data" json:"data"`
	RawText     string          `db:"raw_text" json:"raw_text,omitempty"`
	ItemCount   int             `db:"item_count" json:"item_count"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is an extracted record in the shape the back-office orders use.
type OrderItem struct {
	ID                      string    `db:"id" json:"id"`
	ExtractionID            string    `db:"extraction_id" json:"extraction_id"`
	Code                    string    `db:"code" json:"code"`
	TaxType                 string    `db:"tax_type" json:"tax_type"`
	StartPeriod             string    `db:"start_period" json:"start_period"`
	EndPeriod               string    `db:"end_period" json:"end_period"`
	DueDate                 string    `db:"due_date" json:"due_date"`
	OriginalValue           float64   `db:"original_value" json:"original_value"`
	CurrentBalance          float64   `db:"current_balance" json:"current_balance"`
	Fine                    float64   `db:"fine" json:"fine"`
	Interest                float64   `db:"interest" json:"interest"`
	SaldoDevedorConsolidado float64   `db:"saldo_devedor_consolidado" json:"saldo_devedor_consolidado"`
	Status                  string    `db:"status" json:"status"`
	CNO                     string    `db:"cno" json:"cno"`
	CNPJ                    string    `db:"cnpj" json:"cnpj"`
	Denominacao             string    `db:"denominacao" json:"denominacao,omitempty"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
}
