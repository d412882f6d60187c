// Package orders maps extracted fiscal records to order items and aggregates them per
// report section.
package orders

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/fiscalextract/internal/fiscal"
	"github.com/markdave123-py/fiscalextract/internal/models"
)

// Tax types carried by order items.
const (
	TaxDebito                   = "DEBITO"
	TaxSimplesNacional          = "SIMPLES_NACIONAL"
	TaxDebitoExigSuspensa       = "DEBITO_EXIG_SUSPENSA_SIEF"
	TaxParcelamentoSiefpar      = "PARCELAMENTO_SIEFPAR"
	TaxPendenciaInscricaoSida   = "PENDENCIA_INSCRICAO_SIDA"
	TaxPendenciaParcelamentoDau = "PENDENCIA_PARCELAMENTO_SISPAR"
	TaxDarf                     = "DARF"
)

var revenueCode = regexp.MustCompile(`\d{4}-\d{2}`)

// darfFallbackDate fills DARF items whose slip carried no due date.
const darfFallbackDate = "2024-01-01"

// FromReport converts every record of a fiscal report, section by section.
func FromReport(extractionID string, r fiscal.FiscalReport) []models.OrderItem {
	now := time.Now().UTC()
	items := make([]models.OrderItem, 0, r.Len())

	for _, d := range r.PendenciasDebito {
		items = append(items, fromPendencia(d))
	}
	for _, d := range r.DebitosExigSuspensa {
		code := d.Receita
		if strings.TrimSpace(code) == "" {
			code = "EXIG-SUSPENSA-" + periodSlug(d.PeriodoApuracao)
		}
		items = append(items, models.OrderItem{
			Code:           code,
			TaxType:        TaxDebitoExigSuspensa,
			StartPeriod:    d.PeriodoApuracao,
			EndPeriod:      d.PeriodoApuracao,
			DueDate:        d.Vencimento,
			OriginalValue:  d.ValorOriginal,
			CurrentBalance: d.SaldoDevedor,
			Status:         d.Situacao,
			CNO:            d.CNO,
			CNPJ:           d.CNPJ,
		})
	}
	for _, p := range r.ParcelamentosSiefpar {
		items = append(items, models.OrderItem{
			Code:           p.Parcelamento,
			TaxType:        TaxParcelamentoSiefpar,
			StartPeriod:    "PARCELAMENTO",
			EndPeriod:      "PARCELAMENTO",
			DueDate:        "SUSPENSO",
			OriginalValue:  p.ValorSuspenso,
			CurrentBalance: p.ValorSuspenso,
			Status:         orDefault(p.Modalidade, "ATIVO"),
			CNPJ:           p.CNPJ,
		})
	}
	for _, s := range r.PendenciasInscricao {
		items = append(items, models.OrderItem{
			Code:           s.Inscricao,
			TaxType:        TaxPendenciaInscricaoSida,
			StartPeriod:    "INSCRICAO",
			EndPeriod:      "INSCRICAO",
			DueDate:        "NAO AJUIZADO",
			CurrentBalance: s.ValorConsolidado,
			Status:         orDefault(s.Situacao, "ATIVA"),
			CNPJ:           s.CNPJ,
		})
	}
	for _, s := range r.PendenciasParcelamento {
		items = append(items, models.OrderItem{
			Code:           s.Parcelamento,
			TaxType:        TaxPendenciaParcelamentoDau,
			StartPeriod:    "PARCELAMENTO",
			EndPeriod:      "PARCELAMENTO",
			DueDate:        "NEGOCIADO",
			CurrentBalance: s.ValorConsolidado,
			Status:         orDefault(s.Situacao, "ATIVO"),
			CNPJ:           s.CNPJ,
		})
	}

	return stamp(items, extractionID, now)
}

func fromPendencia(d fiscal.DebitoPendencia) models.OrderItem {
	simples := isSimples(d.Receita)
	taxType := TaxDebito
	if simples {
		taxType = TaxSimplesNacional
	}

	// a Simples label without a revenue code is not a code
	code := d.Receita
	if simples && !revenueCode.MatchString(code) {
		code = TaxSimplesNacional
	}

	start, due := d.PeriodoApuracao, d.Vencimento
	if simples {
		start = orDefault(start, "SIMPLES NAC.")
		due = orDefault(due, "A DEFINIR")
	}
	start = orDefault(start, "N/A")
	due = orDefault(due, "N/A")

	return models.OrderItem{
		Code:                    code,
		TaxType:                 taxType,
		StartPeriod:             start,
		EndPeriod:               start,
		DueDate:                 due,
		OriginalValue:           d.ValorOriginal,
		CurrentBalance:          d.SaldoDevedor,
		Fine:                    d.Multa,
		Interest:                d.Juros,
		SaldoDevedorConsolidado: d.SaldoDevedorConsolidado,
		Status:                  orDefault(d.Situacao, "DEVEDOR"),
		CNPJ:                    d.CNPJ,
	}
}

// FromDarf yields one item per composition line, or a single item for the whole slip
// when the DARF has no composition table.
func FromDarf(extractionID string, d fiscal.DarfData) []models.OrderItem {
	now := time.Now().UTC()

	if len(d.Itens) == 0 {
		due := orDefault(d.DataVencimento, darfFallbackDate)
		item := models.OrderItem{
			Code:           d.CodigoReceita,
			TaxType:        TaxDarf,
			StartPeriod:    orDefault(d.PeriodoApuracao, due),
			DueDate:        due,
			OriginalValue:  d.ValorPrincipal,
			CurrentBalance: d.ValorTotal,
			Fine:           d.ValorMulta,
			Interest:       d.ValorJuros,
			Status:         "PENDING",
			CNPJ:           d.CNPJ,
		}
		item.EndPeriod = item.StartPeriod
		return stamp([]models.OrderItem{item}, extractionID, now)
	}

	items := make([]models.OrderItem, 0, len(d.Itens))
	for _, it := range d.Itens {
		due := orDefault(it.Vencimento, darfFallbackDate)
		period := orDefault(it.PeriodoApuracao, due)
		items = append(items, models.OrderItem{
			Code:           it.Codigo,
			TaxType:        TaxDarf,
			StartPeriod:    period,
			EndPeriod:      period,
			DueDate:        due,
			OriginalValue:  it.Principal,
			CurrentBalance: it.Total,
			Fine:           it.Multa,
			Interest:       it.Juros,
			Status:         "PENDING",
			CNPJ:           d.CNPJ,
			Denominacao:    it.Denominacao,
		})
	}
	return stamp(items, extractionID, now)
}

// FromExtraction dispatches on the document type.
func FromExtraction(extractionID string, ex fiscal.Extraction) []models.OrderItem {
	switch {
	case ex.Type == fiscal.DocTypeDarf && ex.Darf != nil:
		return FromDarf(extractionID, *ex.Darf)
	case ex.Report != nil:
		return FromReport(extractionID, *ex.Report)
	}
	return nil
}

func stamp(items []models.OrderItem, extractionID string, now time.Time) []models.OrderItem {
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].ExtractionID = extractionID
		items[i].CreatedAt = now
	}
	return items
}

func isSimples(receita string) bool {
	up := strings.ToUpper(receita)
	return strings.Contains(up, "SIMPLES") || strings.Contains(receita, "1507")
}

func periodSlug(p string) string {
	return strings.NewReplacer("/", "-", " ", "-").Replace(p)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
