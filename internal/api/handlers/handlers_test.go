package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	middleware "github.com/markdave123-py/fiscalextract/internal/api/middlewares"
	"github.com/markdave123-py/fiscalextract/internal/core/coretest"
	"github.com/markdave123-py/fiscalextract/internal/core/ingestion_engine"
	"github.com/markdave123-py/fiscalextract/internal/envelope"
	"github.com/markdave123-py/fiscalextract/internal/export"
	"github.com/markdave123-py/fiscalextract/internal/models"
	"github.com/markdave123-py/fiscalextract/internal/orders"
)

const reportText = "Pendência - Débito (SIEF)\n" +
	"CNPJ: 12.345.678/0001-90\n" +
	"1234-56 - Some Revenue\n" +
	"03/2024\n" +
	"10/03/2024\n" +
	"1.234,56\n" +
	"600,00"

const darfText = "Documento de Arrecadação de Receitas Federais\n" +
	"CNPJ: 12.345.678/0001-90\n" +
	"Valor do Principal: 100,00\n" +
	"Valor da Multa: 10,00\n" +
	"Valor dos Juros: 5,00"

var testSecret = []byte("handler-secret")

// recordingIngestor processes jobs inline so tests can inspect the store right away.
type recordingIngestor struct {
	inner *ingestion_engine.ExtractionIngestor
	jobs  []ingestion_engine.Job
}

func (r *recordingIngestor) Start(context.Context, int) {}
func (r *recordingIngestor) Wait()                      {}
func (r *recordingIngestor) Enqueue(ctx context.Context, job ingestion_engine.Job) error {
	r.jobs = append(r.jobs, job)
	return r.inner.ProcessOne(ctx, job)
}
func (r *recordingIngestor) ProcessOne(ctx context.Context, job ingestion_engine.Job) error {
	return r.inner.ProcessOne(ctx, job)
}

type fixture struct {
	db       *coretest.DB
	objects  *coretest.Objects
	ingestor *recordingIngestor
	router   http.Handler
}

func newFixture(t *testing.T, text string, extractErr error) *fixture {
	t.Helper()
	db := coretest.NewDB()
	objects := coretest.NewObjects()
	ing := &recordingIngestor{inner: ingestion_engine.NewExtractionIngestor(db, objects, ingestion_engine.IngestConfig{}, zap.NewNop())}
	h := NewExtractionHandler(&coretest.Extractor{Text: text, Err: extractErr}, db, ing, 1<<20, zap.NewNop())
	auth := NewAuthHandler(db, testSecret, zap.NewNop())

	r := chi.NewRouter()
	r.Post("/signup", auth.Signup)
	r.Post("/login", auth.Login)
	r.Get("/schema", h.Schema)
	r.Group(func(g chi.Router) {
		g.Use(middleware.OptionalJWT(testSecret))
		g.Post("/extract", h.Extract)
		g.Post("/extract-darf", h.ExtractDarf)
	})
	r.Group(func(g chi.Router) {
		g.Use(middleware.JWT(testSecret))
		g.Get("/extractions", h.List)
		g.Get("/extractions/{id}", h.Get)
		g.Get("/extractions/{id}/export.xlsx", h.Export)
	})
	return &fixture{db: db, objects: objects, ingestor: ing, router: r}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(content)
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestExtractReport(t *testing.T) {
	f := newFixture(t, reportText, nil)
	rec := f.do(uploadRequest(t, "/extract", "file", "relatorio.pdf", []byte("%PDF")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if err := envelope.Validate(rec.Body.Bytes()); err != nil {
		t.Errorf("response does not match schema: %v", err)
	}

	body := decode(t, rec)
	if body["success"] != true || body["type"] != "fiscal_report" {
		t.Errorf("envelope = %v", body)
	}
	data := body["data"].(map[string]any)
	debts := data["pendencias_debito"].([]any)
	if len(debts) != 1 {
		t.Fatalf("got %d debts, want 1", len(debts))
	}
	if debts[0].(map[string]any)["vencimento"] != "2024-03-10" {
		t.Errorf("debt = %v", debts[0])
	}

	id, _ := body["extraction_id"].(string)
	if id == "" {
		t.Fatal("no extraction_id in response")
	}
	ex, err := f.db.GetExtraction(t.Context(), id)
	if err != nil {
		t.Fatalf("extraction not stored: %v", err)
	}
	if ex.Status != models.StatusStored || ex.OperatorID != "" || ex.ItemCount != 1 {
		t.Errorf("stored extraction = %+v", ex)
	}
	if !f.objects.Has("extractions/" + id + "/relatorio.pdf") {
		t.Error("upload not archived")
	}
}

func TestExtractDarf(t *testing.T) {
	tests := []struct {
		name string
		path string
		text string
	}{
		{"classified", "/extract", darfText},
		{"forced", "/extract-darf", "Valor do Principal: 100,00\nValor da Multa: 10,00\nValor dos Juros: 5,00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.text, nil)
			rec := f.do(uploadRequest(t, tc.path, "file", "darf.pdf", []byte("%PDF")))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			body := decode(t, rec)
			if body["type"] != "darf" {
				t.Fatalf("type = %v", body["type"])
			}
			data := body["data"].(map[string]any)
			if data["valor_total"] != 115.0 {
				t.Errorf("valor_total = %v, want 115", data["valor_total"])
			}
		})
	}
}

func TestExtractTypeOverride(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		text       string
		wantStatus int
		wantType   string
	}{
		{"darf over report", "/extract?type=darf", reportText, http.StatusOK, "darf"},
		{"report over darf", "/extract?type=FISCAL_REPORT", darfText, http.StatusOK, "fiscal_report"},
		{"unknown type", "/extract?type=boleto", reportText, http.StatusBadRequest, ""},
		{"forced route ignores it", "/extract-darf?type=fiscal_report", reportText, http.StatusOK, "darf"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.text, nil)
			rec := f.do(uploadRequest(t, tc.path, "file", "doc.pdf", []byte("%PDF")))
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			body := decode(t, rec)
			if tc.wantType == "" {
				if body["error"] == nil || len(f.ingestor.jobs) != 0 {
					t.Errorf("body = %v, jobs = %d; want an error and nothing queued", body, len(f.ingestor.jobs))
				}
				return
			}
			if body["type"] != tc.wantType {
				t.Errorf("type = %v, want %s", body["type"], tc.wantType)
			}
		})
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		extractErr error
		text       string
		wantStatus int
		wantError  string
	}{
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(`{}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			text:       reportText,
			wantStatus: http.StatusBadRequest,
			wantError:  errNotMultipart.Error(),
		},
		{
			name: "no file",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/extract", "document", "relatorio.pdf", []byte("%PDF"))
			},
			text:       reportText,
			wantStatus: http.StatusBadRequest,
			wantError:  errNoFile.Error(),
		},
		{
			name: "not a pdf",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/extract", "file", "notes.txt", []byte("hello"))
			},
			text:       reportText,
			wantStatus: http.StatusBadRequest,
			wantError:  errNotPDF.Error(),
		},
		{
			name: "no text",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/extract", "file", "scan.pdf", []byte("%PDF"))
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No text could be extracted from the PDF",
		},
		{
			name: "converter failure",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/extract", "file", "broken.pdf", []byte("%PDF"))
			},
			extractErr: errors.New("pdftotext exited 1"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to process PDF",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.text, tc.extractErr)
			rec := f.do(tc.req(t))
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			body := decode(t, rec)
			if body["error"] != tc.wantError {
				t.Errorf("error = %v, want %q", body["error"], tc.wantError)
			}
			if tc.wantStatus == http.StatusInternalServerError && body["details"] != "pdftotext exited 1" {
				t.Errorf("details = %v", body["details"])
			}
			if len(f.ingestor.jobs) != 0 {
				t.Error("failed request was queued")
			}
		})
	}
}

func TestExtractWithoutPersistence(t *testing.T) {
	h := NewExtractionHandler(&coretest.Extractor{Text: reportText}, nil, nil, 0, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Extract(rec, uploadRequest(t, "/extract", "file", "r.pdf", []byte("%PDF")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := decode(t, rec)["extraction_id"]; ok {
		t.Error("extraction_id should be omitted when nothing is stored")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/extractions", nil)
	h.List(rec, req.WithContext(middleware.WithUserID(req.Context(), "op")))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("list status = %d, want 503", rec.Code)
	}
}

func TestSchema(t *testing.T) {
	f := newFixture(t, "", nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/schema", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), envelope.SchemaJSON) {
		t.Error("schema body differs from the embedded schema")
	}
}

func signupToken(t *testing.T, f *fixture, email string) string {
	t.Helper()
	body := `{"name":"Ana","email":"` + email + `","password":"s3cret-pass"}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}
	token, _ := decode(t, rec)["token"].(string)
	if token == "" {
		t.Fatal("no token issued")
	}
	return token
}

func TestAuth(t *testing.T) {
	f := newFixture(t, "", nil)
	signupToken(t, f, "ana@example.com")

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"duplicate signup", "/signup", `{"email":"ANA@example.com","password":"another-pass"}`, http.StatusConflict},
		{"short password", "/signup", `{"email":"bob@example.com","password":"short"}`, http.StatusBadRequest},
		{"bad email", "/signup", `{"email":"nope","password":"long-enough"}`, http.StatusBadRequest},
		{"bad body", "/signup", `{`, http.StatusBadRequest},
		{"login", "/login", `{"email":"ana@example.com","password":"s3cret-pass"}`, http.StatusOK},
		{"wrong password", "/login", `{"email":"ana@example.com","password":"wrong-pass"}`, http.StatusUnauthorized},
		{"unknown operator", "/login", `{"email":"who@example.com","password":"s3cret-pass"}`, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body)))
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestOperatorExtractions(t *testing.T) {
	f := newFixture(t, reportText, nil)
	token := signupToken(t, f, "ana@example.com")
	other := signupToken(t, f, "bob@example.com")

	up := uploadRequest(t, "/extract", "file", "relatorio.pdf", []byte("%PDF"))
	up.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(up)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}
	id := decode(t, rec)["extraction_id"].(string)

	authed := func(path, tok string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		return f.do(req)
	}

	t.Run("list", func(t *testing.T) {
		rec := authed("/extractions", token)
		var list []models.Extraction
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(list) != 1 || list[0].ID != id || list[0].RawText != "" {
			t.Errorf("list = %+v", list)
		}
		if rec := authed("/extractions", other); !strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "[]") {
			t.Errorf("other operator sees %s", rec.Body.String())
		}
	})

	t.Run("detail", func(t *testing.T) {
		rec := authed("/extractions/"+id, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var detail struct {
			Items         []models.OrderItem `json:"items"`
			SectionTotals map[string]float64 `json:"section_totals"`
			Total         float64            `json:"total"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(detail.Items) != 1 || detail.Items[0].TaxType != orders.TaxDebito {
			t.Errorf("items = %+v", detail.Items)
		}
		// no consolidated balance, so the current balance is summed
		if detail.Total != 600 || detail.SectionTotals[orders.SectionPendenciasDebito] != 600 {
			t.Errorf("total = %v, totals = %v", detail.Total, detail.SectionTotals)
		}

		rec = authed("/extractions/"+id+"?exclude=pendencias_debito", token)
		if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if detail.Total != 0 {
			t.Errorf("excluded total = %v, want 0", detail.Total)
		}
	})

	t.Run("not owner", func(t *testing.T) {
		if rec := authed("/extractions/"+id, other); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
		if rec := authed("/extractions/missing", token); rec.Code != http.StatusNotFound {
			t.Errorf("missing: status = %d, want 404", rec.Code)
		}
	})

	t.Run("export", func(t *testing.T) {
		rec := authed("/extractions/"+id+"/export.xlsx", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "relatorio.xlsx") {
			t.Errorf("Content-Disposition = %q", cd)
		}
		wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		if err != nil {
			t.Fatalf("open workbook: %v", err)
		}
		defer wb.Close()
		rows, err := wb.GetRows(export.SheetName)
		if err != nil {
			t.Fatalf("GetRows: %v", err)
		}
		if len(rows) < 2 || rows[1][0] != "1234-56 - Some Revenue" {
			t.Errorf("rows = %v", rows)
		}
	})

	t.Run("requires token", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/extractions", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestGenerateJWT(t *testing.T) {
	tok, err := generateJWT(testSecret, "op-9", time.Minute)
	if err != nil {
		t.Fatalf("generateJWT: %v", err)
	}
	var got string
	h := middleware.JWT(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = middleware.UserID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "op-9" {
		t.Errorf("user id = %q", got)
	}
}
