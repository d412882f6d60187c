package fiscal

import (
	"regexp"
	"strings"
)

// SimplesReceita is the receita given to Simples Nacional records listed without a
// revenue code.
const SimplesReceita = "SIMPLES NAC."

var (
	pendenciaDebitoStart = regexp.MustCompile(`(?i)(?:Pendência|Pendencia|PENDÊNCIA|PENDENCIA)[\s-]*(?:Débito|Debito|DÉBITO|DEBITO)[\s-]*(?:\(SIEF\)|\(sief\))`)
	// a cell holding only an amount: digits with a decimal or thousands separator
	amountCell = regexp.MustCompile(`^[\d.,]+$`)

	simplesLabel = regexp.MustCompile(`(?i)^SIMPLES\s+NAC\.?`)
	// one-line row: period, due date, original, balance, fine, interest, consolidated, status
	pendenciaRow = regexp.MustCompile(`^(\d{2}/\d{4})\s+(\d{2}/\d{2}/\d{4})\s+([\d.,]+)\s+([\d.,]+)\s+([\d.,]+)\s+([\d.,]+)\s+([\d.,]+)(?:\s+(.+))?$`)
)

var pendenciasDebitoScanner = &sectionScanner[DebitoPendencia]{
	section: SectionPendenciasDebito,
	start:   pendenciaDebitoStart,
	ends:    baseEnds,
	isHeader: func(line string) bool {
		return containsAll(line, "Receita", "PA/Exerc", "Vcto")
	},
	isRecord: isPendenciaStart,
	parse:    parsePendenciaDebito,
}

func isPendenciaStart(line string) bool {
	return revenueLine.MatchString(line) || simplesLabel.MatchString(line) || pendenciaRow.MatchString(line)
}

// parsePendenciaDebito reads one pending debt. A revenue line or a SIMPLES NAC. label
// starts a block that runs up to the next record, boundary, CNPJ or header; its lines are
// classified by shape. A bare table row is a complete Simples record on its own.
func parsePendenciaDebito(lines []string, i int, ctx blockContext) Result[DebitoPendencia] {
	head := strings.TrimSpace(lines[i])
	rec := DebitoPendencia{CNPJ: ctx.cnpj}

	if m := pendenciaRow.FindStringSubmatch(head); m != nil {
		rec.Receita = SimplesReceita
		fillFromRow(&rec, m)
		return emit(rec, i+1)
	}

	simples := false
	if m := revenueLine.FindStringSubmatch(head); m != nil {
		rec.Receita = strings.TrimSpace(m[1])
	} else {
		simples = true
		rec.Receita = SimplesReceita
		rest := strings.TrimSpace(simplesLabel.ReplaceAllString(head, ""))
		if m := pendenciaRow.FindStringSubmatch(rest); m != nil {
			fillFromRow(&rec, m)
		}
	}

	j := i + 1
	var cells []string
	for ; j < len(lines); j++ {
		line := strings.TrimSpace(lines[j])
		if isPendenciaStart(line) || matchesAny(baseEnds, line) ||
			cnpjLine.MatchString(line) || containsAll(line, "Receita", "PA/Exerc") {
			break
		}
		if line != "" {
			cells = append(cells, line)
		}
	}

	for _, cell := range cells {
		classifyPendenciaCell(&rec, cell)
	}

	// the label alone identifies a Simples record; missing fields are left empty
	if simples {
		return emit(rec, j)
	}
	if rec.Receita == "" || rec.PeriodoApuracao == "" || rec.Vencimento == "" {
		return skip[DebitoPendencia](SkipIncomplete)
	}
	return emit(rec, j)
}

// fillFromRow copies a pendenciaRow match. Row columns are positional, unlike stacked cells.
func fillFromRow(rec *DebitoPendencia, m []string) {
	rec.PeriodoApuracao = ParsePeriod(m[1])
	rec.Vencimento = ParseDate(m[2])
	rec.ValorOriginal = ParseCurrency(m[3])
	rec.SaldoDevedor = ParseCurrency(m[4])
	rec.Multa = ParseCurrency(m[5])
	rec.Juros = ParseCurrency(m[6])
	rec.SaldoDevedorConsolidado = ParseCurrency(m[7])
	rec.Situacao = strings.TrimSpace(m[8])
}

// classifyPendenciaCell assigns one cell to the first field its shape fits. The first
// period-shaped cell is the period; a full date after that is the due date. Amounts fill
// the value fields in a fixed order regardless of which columns the source omitted.
func classifyPendenciaCell(rec *DebitoPendencia, cell string) {
	if rec.PeriodoApuracao == "" && hasPeriodShape(cell) {
		rec.PeriodoApuracao = ParsePeriod(cell)
		return
	}
	if dateShape.MatchString(cell) {
		if rec.Vencimento == "" {
			rec.Vencimento = ParseDate(cell)
		}
		return
	}
	if amountCell.MatchString(cell) && strings.ContainsAny(cell, ",.") {
		v := ParseCurrency(cell)
		if v <= 0 {
			return
		}
		for _, f := range []*float64{
			&rec.ValorOriginal,
			&rec.SaldoDevedor,
			&rec.SaldoDevedorConsolidado,
			&rec.Multa,
			&rec.Juros,
		} {
			if *f == 0 {
				*f = v
				return
			}
		}
		return
	}
	if rec.Situacao == "" && !revenueCode.MatchString(cell) && !monthPeriodShape.MatchString(cell) {
		rec.Situacao = cell
	}
}
