package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	middleware "github.com/markdave123-py/fiscalextract/internal/api/middlewares"
	"github.com/markdave123-py/fiscalextract/internal/core"
	db "github.com/markdave123-py/fiscalextract/internal/core/database"
	"github.com/markdave123-py/fiscalextract/internal/core/ingestion_engine"
	"github.com/markdave123-py/fiscalextract/internal/envelope"
	"github.com/markdave123-py/fiscalextract/internal/export"
	"github.com/markdave123-py/fiscalextract/internal/fiscal"
	"github.com/markdave123-py/fiscalextract/internal/logtrace"
	"github.com/markdave123-py/fiscalextract/internal/models"
	"github.com/markdave123-py/fiscalextract/internal/orders"
)

var (
	errNotMultipart = errors.New("Content-Type must be multipart/form-data")
	errNoFile       = errors.New("No PDF file provided")
	errNotPDF       = errors.New("Invalid file type, please upload a PDF")
	errBadDocType   = errors.New("Invalid document type, use darf or fiscal_report")
)

// multipart parts beyond this stay on disk while the form is parsed
const formMemory = 8 << 20

type ExtractionHandler struct {
	extractor core.TextExtractor
	dbclient  core.DbClient
	ingestor  ingestion_engine.Ingestor
	maxUpload int64
	logger    *zap.Logger
}

// NewExtractionHandler wires the upload endpoints. dbclient and ing may be nil, in which
// case uploads are answered but not persisted and the listing endpoints report 503.
func NewExtractionHandler(extractor core.TextExtractor, dbclient core.DbClient, ing ingestion_engine.Ingestor, maxUpload int64, logger *zap.Logger) *ExtractionHandler {
	return &ExtractionHandler{extractor: extractor, dbclient: dbclient, ingestor: ing, maxUpload: maxUpload, logger: logger}
}

// Extract classifies the uploaded document and runs the matching extractor. A "type"
// query parameter or form field overrides the classification.
func (h *ExtractionHandler) Extract(w http.ResponseWriter, r *http.Request) {
	h.extract(w, r, "")
}

// ExtractDarf treats the upload as a DARF regardless of its content.
func (h *ExtractionHandler) ExtractDarf(w http.ResponseWriter, r *http.Request) {
	h.extract(w, r, fiscal.DocTypeDarf)
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

func (h *ExtractionHandler) extract(w http.ResponseWriter, r *http.Request, forced fiscal.DocType) {
	up, err := h.readUpload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, errNotMultipart), errors.Is(err, errNoFile), errors.Is(err, errNotPDF):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeFailure(w, err)
		}
		return
	}

	docType := forced
	if v := r.FormValue("type"); docType == "" && v != "" {
		dt, ok := fiscal.ParseDocType(v)
		if !ok {
			writeError(w, http.StatusBadRequest, errBadDocType.Error())
			return
		}
		docType = dt
	}

	text, err := h.extractor.ExtractText(r.Context(), up.data, up.contentType)
	if errors.Is(err, core.ErrNoText) {
		writeError(w, http.StatusBadRequest, "No text could be extracted from the PDF")
		return
	}
	if err != nil {
		h.logger.Error("text extraction failed", zap.String("file", up.name), zap.Error(err))
		writeFailure(w, err)
		return
	}

	id := uuid.NewString()
	trace := logtrace.New(h.logger, zap.String("extraction_id", id))

	var result fiscal.Extraction
	if docType != "" {
		result = fiscal.ExtractAs(text, docType, fiscal.WithTrace(trace))
	} else {
		result = fiscal.Extract(text, fiscal.WithTrace(trace))
	}

	if h.ingestor == nil {
		id = ""
	}
	body, err := json.Marshal(envelope.New(result, id))
	if err != nil {
		writeFailure(w, err)
		return
	}

	if h.ingestor != nil {
		if err := h.enqueue(r, id, up, result, body); err != nil {
			// the caller still gets the data, it just is not kept
			h.logger.Warn("extraction not queued", zap.String("extraction_id", id), zap.Error(err))
		}
	}

	h.logger.Info("extraction done",
		zap.String("extraction_id", id),
		zap.String("doc_type", string(result.Type)),
		zap.String("file", up.name),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *ExtractionHandler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil, errNotMultipart
	}
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errNotMultipart
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if !isPDF(name, contentType) {
		return nil, errNotPDF
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "application/pdf"
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &upload{name: name, contentType: contentType, data: data}, nil
}

func isPDF(name, contentType string) bool {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return true
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	return mediaType == "application/pdf"
}

func (h *ExtractionHandler) enqueue(r *http.Request, id string, up *upload, result fiscal.Extraction, body []byte) error {
	data, err := json.Marshal(result.Payload())
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	operatorID, _ := middleware.UserID(r.Context())
	now := time.Now().UTC()

	job := ingestion_engine.Job{
		Extraction: &models.Extraction{
			ID:          id,
			OperatorID:  operatorID,
			FileName:    up.name,
			ContentType: up.contentType,
			DocType:     string(result.Type),
			Status:      models.StatusReceived,
			Data:        data,
			RawText:     result.RawText,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Document: up.data,
		Result:   result,
		Envelope: body,
	}
	return h.ingestor.Enqueue(r.Context(), job)
}

// Schema serves the JSON schema of the extraction envelope.
func (h *ExtractionHandler) Schema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write(envelope.SchemaJSON)
}

// List returns the caller's extractions, newest first.
func (h *ExtractionHandler) List(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := h.requireStore(w, r)
	if !ok {
		return
	}

	list, err := h.dbclient.ListExtractionsByOperator(r.Context(), operatorID)
	if err != nil {
		h.logger.Error("list extractions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type extractionDetail struct {
	Extraction    *models.Extraction             `json:"extraction"`
	Items         []models.OrderItem             `json:"items"`
	SectionTotals map[string]float64             `json:"section_totals"`
	SectionCounts map[string]int                 `json:"section_counts"`
	ByTaxType     map[string]orders.TaxTypeStats `json:"by_tax_type"`
	Flags         orders.Flags                   `json:"flags"`
	Total         float64                        `json:"total"`
}

// Get returns one extraction with its order items and aggregates. The include and
// exclude query parameters are comma separated section keys overriding the default flags.
func (h *ExtractionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ex, items, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	flags := flagsFromQuery(r)
	writeJSON(w, http.StatusOK, extractionDetail{
		Extraction:    ex,
		Items:         items,
		SectionTotals: orders.SectionTotals(items),
		SectionCounts: orders.SectionCounts(items),
		ByTaxType:     orders.StatsByTaxType(items),
		Flags:         flags,
		Total:         orders.FilteredTotal(items, flags, nil),
	})
}

// Export streams the order items of an extraction as an XLSX workbook.
func (h *ExtractionHandler) Export(w http.ResponseWriter, r *http.Request) {
	ex, items, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	b, err := export.ItemsXLSX(items)
	if err != nil {
		h.logger.Error("xlsx export", zap.String("extraction_id", ex.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := strings.TrimSuffix(ex.FileName, filepath.Ext(ex.FileName)) + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	_, _ = w.Write(b)
}

func (h *ExtractionHandler) requireStore(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.dbclient == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return "", false
	}
	operatorID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user_id not found in context")
		return "", false
	}
	return operatorID, true
}

// loadOwned fetches the extraction named in the URL. Extractions of other operators are
// reported as missing.
func (h *ExtractionHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Extraction, []models.OrderItem, bool) {
	operatorID, ok := h.requireStore(w, r)
	if !ok {
		return nil, nil, false
	}

	ex, err := h.dbclient.GetExtraction(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, db.ErrNotFound) || (err == nil && ex.OperatorID != operatorID) {
		writeError(w, http.StatusNotFound, "extraction not found")
		return nil, nil, false
	}
	if err != nil {
		h.logger.Error("get extraction", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}

	items, err := h.dbclient.ListOrderItems(r.Context(), ex.ID)
	if err != nil {
		h.logger.Error("list order items", zap.String("extraction_id", ex.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}
	return ex, items, true
}

func flagsFromQuery(r *http.Request) orders.Flags {
	flags := orders.DefaultFlags()
	set := func(param string, v bool) {
		for _, s := range strings.Split(r.URL.Query().Get(param), ",") {
			if s = strings.TrimSpace(s); s != "" {
				if _, known := flags[s]; known {
					flags[s] = v
				}
			}
		}
	}
	set("include", true)
	set("exclude", false)
	return flags
}
