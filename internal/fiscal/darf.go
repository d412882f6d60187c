package fiscal

import (
	"regexp"
	"strings"
)

var (
	darfCNPJ       = regexp.MustCompile(`CNPJ[:\s]+(\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2})`)
	darfPeriodo    = regexp.MustCompile(`(?i)Período\s+de\s+Apuração[:\s]+(\d{2}/\d{2}/\d{4})`)
	darfVencimento = regexp.MustCompile(`(?i)Data\s+de\s+Vencimento[:\s]+(\d{2}/\d{2}/\d{4})`)
	darfCodigo     = regexp.MustCompile(`(?i)Código\s+da\s+Receita[:\s]+(\d{4})`)
	darfReferencia = regexp.MustCompile(`(?i)Número\s+de\s+Referência[:\s]+(\d+)`)
	darfPrincipal  = regexp.MustCompile(`(?i)Valor\s+do\s+Principal[:\s]+([\d.,]+)`)
	darfMulta      = regexp.MustCompile(`(?i)Valor\s+da\s+Multa[:\s]+([\d.,]+)`)
	darfJuros      = regexp.MustCompile(`(?i)Valor\s+dos\s+Juros[:\s]+([\d.,]+)`)
	darfTotal      = regexp.MustCompile(`(?i)Valor\s+Total[:\s]+([\d.,]+)`)
)

type darfField struct {
	re  *regexp.Regexp
	set func(d *DarfData, v string)
}

var darfFields = []darfField{
	{darfCNPJ, func(d *DarfData, v string) { d.CNPJ = v }},
	{darfPeriodo, func(d *DarfData, v string) { d.PeriodoApuracao = ParseDate(v) }},
	{darfVencimento, func(d *DarfData, v string) { d.DataVencimento = ParseDate(v) }},
	{darfCodigo, func(d *DarfData, v string) { d.CodigoReceita = v }},
	{darfReferencia, func(d *DarfData, v string) { d.NumeroReferencia = v }},
	{darfPrincipal, func(d *DarfData, v string) { d.ValorPrincipal = ParseCurrency(v) }},
	{darfMulta, func(d *DarfData, v string) { d.ValorMulta = ParseCurrency(v) }},
	{darfJuros, func(d *DarfData, v string) { d.ValorJuros = ParseCurrency(v) }},
	{darfTotal, func(d *DarfData, v string) { d.ValorTotal = ParseCurrency(v) }},
}

// ExtractDarf reads the labelled fields of a DARF. A label seen twice keeps the later value.
// When the slip has no total but has a principal, the total is principal + multa + juros.
func ExtractDarf(text string, opts ...Option) DarfData {
	o := buildOptions(opts)
	lines := strings.Split(text, "\n")

	var d DarfData
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		for _, f := range darfFields {
			if m := f.re.FindStringSubmatch(line); m != nil {
				f.set(&d, m[1])
			}
		}
	}

	if d.ValorTotal == 0 && d.ValorPrincipal != 0 {
		d.ValorTotal = d.ValorPrincipal + d.ValorMulta + d.ValorJuros
	}

	d.Itens = ExtractDarfItems(lines, o.trace)
	return d
}
