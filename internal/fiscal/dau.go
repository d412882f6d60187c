package fiscal

import (
	"regexp"
	"strings"
)

var (
	sidaStart     = regexp.MustCompile(`(?i)Pendência\s+-\s+Inscrição\s+em\s+Dívida\s+Ativa\s+\(SIDA\)`)
	sidaInscricao = regexp.MustCompile(`^(\d{2}\.\d{1,2}\.\d{3}\.\d{6}-\d{2})`)
	sisparStart   = regexp.MustCompile(`(?i)Pendência\s+-\s+Parcelamento\s+de\s+Débito\s+Inscrito\s+em\s+DAU\s+\(SISPAR\)`)
	sisparAccount = regexp.MustCompile(`^(\d{17})`)
)

// Both PGFN sections list a key line followed by a status line and a consolidated value.

var pendenciasInscricaoScanner = &sectionScanner[PendenciaInscricaoSida]{
	section: SectionPendenciasInscricao,
	start:   sidaStart,
	ends:    append(append([]*regexp.Regexp{}, baseEnds...), pgfnDiagnostic),
	isHeader: func(line string) bool {
		return containsAll(line, "Inscrição", "Situação", "Valor Consolidado")
	},
	isRecord: sidaInscricao.MatchString,
	parse: func(lines []string, i int, ctx blockContext) Result[PendenciaInscricaoSida] {
		key, situacao, valor, reason := readDauBlock(lines, i, sidaInscricao)
		if reason != "" {
			return skip[PendenciaInscricaoSida](reason)
		}
		return emit(PendenciaInscricaoSida{
			CNPJ:             ctx.cnpj,
			Inscricao:        key,
			Situacao:         situacao,
			ValorConsolidado: valor,
		}, i+3)
	},
}

var pendenciasParcelamentoScanner = &sectionScanner[PendenciaParcelamentoSispar]{
	section: SectionPendenciasParcelamento,
	start:   sisparStart,
	ends:    baseEnds,
	isHeader: func(line string) bool {
		return containsAll(line, "Parcelamento", "Situação", "Valor Consolidado")
	},
	isRecord: sisparAccount.MatchString,
	parse: func(lines []string, i int, ctx blockContext) Result[PendenciaParcelamentoSispar] {
		key, situacao, valor, reason := readDauBlock(lines, i, sisparAccount)
		if reason != "" {
			return skip[PendenciaParcelamentoSispar](reason)
		}
		return emit(PendenciaParcelamentoSispar{
			CNPJ:             ctx.cnpj,
			Parcelamento:     key,
			Situacao:         situacao,
			ValorConsolidado: valor,
		}, i+3)
	},
}

func readDauBlock(lines []string, i int, keyRe *regexp.Regexp) (key, situacao string, valor float64, reason SkipReason) {
	cells, ok := block(lines, i, 2)
	if !ok {
		return "", "", 0, SkipTruncated
	}
	key = keyRe.FindStringSubmatch(strings.TrimSpace(lines[i]))[1]
	situacao = cells[0]
	if key == "" || situacao == "" {
		return "", "", 0, SkipIncomplete
	}
	return key, situacao, ParseCurrency(cells[1]), ""
}
