package orders

import (
	"github.com/markdave123-py/fiscalextract/internal/models"
)

// Section keys used by Flags and the aggregates.
const (
	SectionPendenciasDebito       = "pendencias_debito"
	SectionDebitosExigSuspensa    = "debitos_exig_suspensa"
	SectionParcelamentosSiefpar   = "parcelamentos_siefpar"
	SectionPendenciasInscricao    = "pendencias_inscricao"
	SectionPendenciasParcelamento = "pendencias_parcelamento"
	SectionSimplesNacional        = "simples_nacional"
	SectionDarf                   = "darf"
)

// Sections lists every section key in display order.
var Sections = []string{
	SectionPendenciasDebito,
	SectionDebitosExigSuspensa,
	SectionParcelamentosSiefpar,
	SectionPendenciasInscricao,
	SectionPendenciasParcelamento,
	SectionSimplesNacional,
	SectionDarf,
}

// Flags tells which sections count towards an order total.
type Flags map[string]bool

// DefaultFlags leaves suspended debts and SIEFPAR plans out of the total.
func DefaultFlags() Flags {
	return Flags{
		SectionPendenciasDebito:       true,
		SectionDebitosExigSuspensa:    false,
		SectionParcelamentosSiefpar:   false,
		SectionPendenciasInscricao:    true,
		SectionPendenciasParcelamento: true,
		SectionSimplesNacional:        true,
		SectionDarf:                   true,
	}
}

var sectionByTaxType = map[string]string{
	TaxDebito:                   SectionPendenciasDebito,
	"PIS":                       SectionPendenciasDebito,
	"COFINS":                    SectionPendenciasDebito,
	"IRPJ":                      SectionPendenciasDebito,
	"CSLL":                      SectionPendenciasDebito,
	"CP-TERCEIROS":              SectionPendenciasDebito,
	"CP-PATRONAL":               SectionPendenciasDebito,
	"IRRF":                      SectionPendenciasDebito,
	TaxDebitoExigSuspensa:       SectionDebitosExigSuspensa,
	TaxParcelamentoSiefpar:      SectionParcelamentosSiefpar,
	TaxPendenciaInscricaoSida:   SectionPendenciasInscricao,
	TaxPendenciaParcelamentoDau: SectionPendenciasParcelamento,
	TaxSimplesNacional:          SectionSimplesNacional,
	TaxDarf:                     SectionDarf,
}

// SectionOf returns the section key for a tax type, or "" when the type is unknown.
func SectionOf(taxType string) string {
	return sectionByTaxType[taxType]
}

// ShouldInclude reports whether an item of the given tax type counts under flags.
// Unknown tax types are always included.
func (f Flags) ShouldInclude(taxType string) bool {
	section, known := sectionByTaxType[taxType]
	if !known {
		return true
	}
	return f[section]
}

// Selector picks the amount of an item that is summed.
type Selector func(models.OrderItem) float64

// Consolidated uses saldo_devedor_consolidado and falls back to current_balance.
func Consolidated(it models.OrderItem) float64 {
	if it.SaldoDevedorConsolidado != 0 {
		return it.SaldoDevedorConsolidado
	}
	return it.CurrentBalance
}

// FilteredTotal sums the selected amount over the included items. A nil selector means
// Consolidated.
func FilteredTotal(items []models.OrderItem, f Flags, sel Selector) float64 {
	if sel == nil {
		sel = Consolidated
	}
	var total float64
	for _, it := range items {
		if f.ShouldInclude(it.TaxType) {
			total += sel(it)
		}
	}
	return total
}

// SectionTotals sums Consolidated per section. Items of unknown tax types are not counted.
func SectionTotals(items []models.OrderItem) map[string]float64 {
	totals := make(map[string]float64, len(Sections))
	for _, s := range Sections {
		totals[s] = 0
	}
	for _, it := range items {
		if s := SectionOf(it.TaxType); s != "" {
			totals[s] += Consolidated(it)
		}
	}
	return totals
}

// SectionCounts counts items per section.
func SectionCounts(items []models.OrderItem) map[string]int {
	counts := make(map[string]int, len(Sections))
	for _, s := range Sections {
		counts[s] = 0
	}
	for _, it := range items {
		if s := SectionOf(it.TaxType); s != "" {
			counts[s]++
		}
	}
	return counts
}

// TaxTypeStats aggregates the items sharing a tax type.
type TaxTypeStats struct {
	Count          int     `json:"count"`
	OriginalValue  float64 `json:"original_value"`
	CurrentBalance float64 `json:"current_balance"`
	Consolidated   float64 `json:"consolidated"`
}

func StatsByTaxType(items []models.OrderItem) map[string]TaxTypeStats {
	stats := make(map[string]TaxTypeStats)
	for _, it := range items {
		s := stats[it.TaxType]
		s.Count++
		s.OriginalValue += it.OriginalValue
		s.CurrentBalance += it.CurrentBalance
		s.Consolidated += Consolidated(it)
		stats[it.TaxType] = s
	}
	return stats
}
