package fiscal

import (
	"regexp"
	"strings"
)

var (
	siefparStart = regexp.MustCompile(`(?i)Parcelamento\s+com\s+Exigibilidade\s+Suspensa\s+\(SIEFPAR\)`)
	siefparPlan  = regexp.MustCompile(`(?i)^Parcelamento:\s*(\d+)`)
	siefparValue = regexp.MustCompile(`(?i)Valor Suspenso:\s*([\d.,]+)`)
	siefparKind  = regexp.MustCompile(`(?i)Modalidade:`)
)

var parcelamentosSiefparScanner = &sectionScanner[ParcelamentoSiefpar]{
	section:  SectionParcelamentosSiefpar,
	start:    siefparStart,
	ends:     []*regexp.Regexp{siefparBoundary, reportEnd, horizontalRule, pgfnDiagnostic},
	isRecord: siefparPlan.MatchString,
	parse:    parseParcelamentoSiefpar,
}

func parseParcelamentoSiefpar(lines []string, i int, ctx blockContext) Result[ParcelamentoSiefpar] {
	cells, ok := block(lines, i, 2)
	if !ok {
		return skip[ParcelamentoSiefpar](SkipTruncated)
	}
	value := siefparValue.FindStringSubmatch(cells[0])
	if value == nil {
		return skip[ParcelamentoSiefpar](SkipMissingValue)
	}
	rec := ParcelamentoSiefpar{
		CNPJ:          ctx.cnpj,
		Parcelamento:  siefparPlan.FindStringSubmatch(strings.TrimSpace(lines[i]))[1],
		ValorSuspenso: ParseCurrency(value[1]),
		Modalidade:    strings.TrimSpace(siefparKind.ReplaceAllString(cells[1], "")),
	}
	return emit(rec, i+3)
}
