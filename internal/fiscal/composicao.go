package fiscal

import (
	"regexp"
	"strings"
)

var (
	composicaoStart  = regexp.MustCompile(`(?i)Composição\s+do\s+Documento\s+de\s+Arrecadação`)
	composicaoHeader = regexp.MustCompile(`(?i)Código\s+Denominação\s+Principal\s+Multa\s+Juros\s+Total`)

	// a code alone on its line, the item columns follow one per line
	itemCodeOnly = regexp.MustCompile(`^(\d{4})$`)
	// code, description and the four amounts on a single line
	itemInline = regexp.MustCompile(`^(\d{4})\s+(.+?)\s+([\d.,]+)\s+([\d.,]+)\s+([\d.,]+)\s+([\d.,]+)$`)

	itemPeriodo    = regexp.MustCompile(`PA\s+(\d{2}/\d{2}/\d{4}|\d{2}/\d{4})`)
	itemVencimento = regexp.MustCompile(`Vencimento\s+(\d{2}/\d{2}/\d{4})`)
)

// ExtractDarfItems reads every "Composição do Documento de Arrecadação" table. A DARF
// printed over several pages repeats the table, each copy runs until the next one.
func ExtractDarfItems(lines []string, trace Trace) []DarfItem {
	var starts []int
	for i, l := range lines {
		if composicaoStart.MatchString(strings.TrimSpace(l)) {
			starts = append(starts, i)
		}
	}

	items := []DarfItem{}
	for n, start := range starts {
		end := len(lines)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		trace.emit(Event{Kind: EventSectionEnter, Section: SectionDarfComposicao, Line: start})
		items = append(items, scanComposicao(lines, start+1, end, trace)...)
		trace.emit(Event{Kind: EventSectionExit, Section: SectionDarfComposicao, Line: end})
	}
	return items
}

func scanComposicao(lines []string, from, end int, trace Trace) []DarfItem {
	var out []DarfItem
	for i := from; i < end; {
		line := strings.TrimSpace(lines[i])

		if composicaoHeader.MatchString(line) {
			i++
			continue
		}
		if line == "" || strings.HasPrefix(line, "Total do Documento") ||
			strings.HasPrefix(line, "VENCIMENTO") || strings.HasPrefix(line, "AUTENTICAÇÃO") {
			break
		}

		var res Result[DarfItem]
		switch {
		case itemCodeOnly.MatchString(line):
			res = parseItemStacked(lines, i, end)
		case itemInline.MatchString(line):
			res = parseItemInline(lines, i, end)
		default:
			i++
			continue
		}

		if !res.ok() {
			trace.emit(Event{Kind: EventSkip, Section: SectionDarfComposicao, Line: i, Reason: res.Skip})
			i++
			continue
		}
		out = append(out, res.Record)
		trace.emit(Event{Kind: EventRecord, Section: SectionDarfComposicao, Line: i})
		i = res.Next
	}
	return out
}

// parseItemStacked reads code, denominação, principal, multa, juros, total, description
// and the "PA ... Vencimento ..." line, one per line.
func parseItemStacked(lines []string, i, end int) Result[DarfItem] {
	if i+7 >= end {
		return skip[DarfItem](SkipTruncated)
	}
	cells, _ := block(lines, i, 7)
	item := DarfItem{
		Codigo:      strings.TrimSpace(lines[i]),
		Denominacao: cells[0],
		Principal:   ParseCurrency(cells[1]),
		Multa:       ParseCurrency(cells[2]),
		Juros:       ParseCurrency(cells[3]),
		Total:       ParseCurrency(cells[4]),
	}
	item.PeriodoApuracao, item.Vencimento = itemDates(cells[6])
	return finishItem(item, i+8)
}

// parseItemInline handles items whose columns share the code line. The description sits
// on the next line and PA/Vencimento on the one after.
func parseItemInline(lines []string, i, end int) Result[DarfItem] {
	if i+2 >= end {
		return skip[DarfItem](SkipTruncated)
	}
	m := itemInline.FindStringSubmatch(strings.TrimSpace(lines[i]))
	item := DarfItem{
		Codigo:      m[1],
		Denominacao: strings.TrimSpace(m[2]),
		Principal:   ParseCurrency(m[3]),
		Multa:       ParseCurrency(m[4]),
		Juros:       ParseCurrency(m[5]),
		Total:       ParseCurrency(m[6]),
	}
	item.PeriodoApuracao, item.Vencimento = itemDates(strings.TrimSpace(lines[i+2]))
	return finishItem(item, i+3)
}

// itemDates pulls the period and due date off a "PA 31/01/2024 Vencimento 20/02/2024" line.
// Full dates come back as YYYY-MM-DD, monthly periods unchanged.
func itemDates(line string) (periodo, vencimento string) {
	if m := itemPeriodo.FindStringSubmatch(line); m != nil {
		periodo = m[1]
		if iso := ParseDate(periodo); iso != "" {
			periodo = iso
		}
	}
	if m := itemVencimento.FindStringSubmatch(line); m != nil {
		vencimento = ParseDate(m[1])
	}
	return periodo, vencimento
}

func finishItem(item DarfItem, next int) Result[DarfItem] {
	if item.Denominacao == "" || item.PeriodoApuracao == "" || item.Vencimento == "" {
		return skip[DarfItem](SkipIncomplete)
	}
	return emit(item, next)
}
