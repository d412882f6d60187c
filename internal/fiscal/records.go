package fiscal

// DebitoPendencia is a pending debt listed under "Pendência - Débito (SIEF)".
type DebitoPendencia struct {
	CNPJ                    string  `json:"cnpj"`
	Receita                 string  `json:"receita"`
	PeriodoApuracao         string  `json:"periodo_apuracao"`
	Vencimento              string  `json:"vencimento"`
	ValorOriginal           float64 `json:"valor_original"`
	SaldoDevedor            float64 `json:"saldo_devedor"`
	Multa                   float64 `json:"multa"`
	Juros                   float64 `json:"juros"`
	SaldoDevedorConsolidado float64 `json:"saldo_devedor_consolidado"`
	Situacao                string  `json:"situacao"`
}

// DebitoExigSuspensa is a debt whose enforceability is suspended (SIEF).
type DebitoExigSuspensa struct {
	CNPJ            string  `json:"cnpj"`
	CNO             string  `json:"cno"`
	Receita         string  `json:"receita"`
	PeriodoApuracao string  `json:"periodo_apuracao"`
	Vencimento      string  `json:"vencimento"`
	ValorOriginal   float64 `json:"valor_original"`
	SaldoDevedor    float64 `json:"saldo_devedor"`
	Situacao        string  `json:"situacao"`
}

// ParcelamentoSiefpar is an installment plan under suspended enforceability.
type ParcelamentoSiefpar struct {
	CNPJ          string  `json:"cnpj"`
	Parcelamento  string  `json:"parcelamento"`
	ValorSuspenso float64 `json:"valor_suspenso"`
	Modalidade    string  `json:"modalidade"`
}

// PendenciaInscricaoSida is an active-debt registration (Dívida Ativa, SIDA).
type PendenciaInscricaoSida struct {
	CNPJ             string  `json:"cnpj"`
	Inscricao        string  `json:"inscricao"`
	Situacao         string  `json:"situacao"`
	ValorConsolidado float64 `json:"valor_consolidado"`
}

// PendenciaParcelamentoSispar is a DAU-registered installment plan (SISPAR).
type PendenciaParcelamentoSispar struct {
	CNPJ             string  `json:"cnpj"`
	Parcelamento     string  `json:"parcelamento"`
	Situacao         string  `json:"situacao"`
	ValorConsolidado float64 `json:"valor_consolidado"`
}

// DarfData is the flat content of a DARF payment slip.
type DarfData struct {
	CNPJ             string     `json:"cnpj"`
	PeriodoApuracao  string     `json:"periodo_apuracao"`
	DataVencimento   string     `json:"data_vencimento"`
	ValorPrincipal   float64    `json:"valor_principal"`
	ValorMulta       float64    `json:"valor_multa"`
	ValorJuros       float64    `json:"valor_juros"`
	ValorTotal       float64    `json:"valor_total"`
	CodigoReceita    string     `json:"codigo_receita"`
	NumeroReferencia string     `json:"numero_referencia"`
	Itens            []DarfItem `json:"itens"`
}

// DarfItem is one line of the "Composição do Documento de Arrecadação" table.
type DarfItem struct {
	Codigo          string  `json:"codigo"`
	Denominacao     string  `json:"denominacao"`
	PeriodoApuracao string  `json:"periodo_apuracao"`
	Vencimento      string  `json:"vencimento"`
	Principal       float64 `json:"principal"`
	Multa           float64 `json:"multa"`
	Juros           float64 `json:"juros"`
	Total           float64 `json:"total"`
}

// FiscalReport groups the records found in a "Situação Fiscal" report, one list per section.
type FiscalReport struct {
	PendenciasDebito       []DebitoPendencia             `json:"pendencias_debito"`
	DebitosExigSuspensa    []DebitoExigSuspensa          `json:"debitos_exig_suspensa"`
	ParcelamentosSiefpar   []ParcelamentoSiefpar         `json:"parcelamentos_siefpar"`
	PendenciasInscricao    []PendenciaInscricaoSida      `json:"pendencias_inscricao"`
	PendenciasParcelamento []PendenciaParcelamentoSispar `json:"pendencias_parcelamento"`
}

// Len is the total number of records across all sections.
func (r FiscalReport) Len() int {
	return len(r.PendenciasDebito) + len(r.DebitosExigSuspensa) + len(r.ParcelamentosSiefpar) +
		len(r.PendenciasInscricao) + len(r.PendenciasParcelamento)
}
