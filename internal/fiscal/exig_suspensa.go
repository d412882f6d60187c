package fiscal

import (
	"regexp"
	"strings"
)

var exigSuspensaStart = regexp.MustCompile(`(?i)Débito\s+com\s+Exigibilidade\s+Suspensa\s+\(SIEF\)`)

var debitosExigSuspensaScanner = &sectionScanner[DebitoExigSuspensa]{
	section:   SectionDebitosExigSuspensa,
	start:     exigSuspensaStart,
	ends:      append(append([]*regexp.Regexp{}, baseEnds...), pgfnDiagnostic),
	trackCNO:  true,
	resetsCNO: true,
	isHeader: func(line string) bool {
		return containsAll(line, "Receita", "PA/Exerc", "Vcto", "Situação")
	},
	isRecord: revenueLine.MatchString,
	parse:    parseDebitoExigSuspensa,
}

// parseDebitoExigSuspensa reads the fixed five-line block after a revenue line:
// period, due date, original value, balance, status.
func parseDebitoExigSuspensa(lines []string, i int, ctx blockContext) Result[DebitoExigSuspensa] {
	cells, ok := block(lines, i, 5)
	if !ok {
		return skip[DebitoExigSuspensa](SkipTruncated)
	}
	rec := DebitoExigSuspensa{
		CNPJ:            ctx.cnpj,
		CNO:             ctx.cno,
		Receita:         strings.TrimSpace(revenueLine.FindStringSubmatch(strings.TrimSpace(lines[i]))[1]),
		PeriodoApuracao: ParsePeriod(cells[0]),
		Vencimento:      ParseDate(cells[1]),
		ValorOriginal:   ParseCurrency(cells[2]),
		SaldoDevedor:    ParseCurrency(cells[3]),
		Situacao:        cells[4],
	}
	if rec.Receita == "" || rec.PeriodoApuracao == "" || rec.Vencimento == "" {
		return skip[DebitoExigSuspensa](SkipIncomplete)
	}
	return emit(rec, i+6)
}
