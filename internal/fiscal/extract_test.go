package fiscal

import (
	"reflect"
	"strings"
	"testing"
)

const sampleReport = `MINISTÉRIO DA FAZENDA
SECRETARIA ESPECIAL DA RECEITA FEDERAL DO BRASIL
Por meio do e-CAC - CNPJ do certificado: 12.345.678/0001-99
Relatório de Situação Fiscal

Pendência - Débito (SIEF)
CNPJ: 12.345.678/0001-99 - EMPRESA EXEMPLO LTDA
Receita PA/Exerc. Dt. Vcto Vl.Original Sdo.Devedor Multa Juros Sdo.Dev.Cons Situação
1234-56 - Some Revenue
03/2024
10/03/2024
1.234,56
600,00
DEVEDOR


Página: 1 de 2
Débito com Exigibilidade Suspensa (SIEF)
CNPJ: 12.345.678/0001-99 - EMPRESA EXEMPLO LTDA
1082-01 - CP-PATRONAL
01/2024
20/02/2024
1.000,00
900,00
SUSPENSO
Parcelamento com Exigibilidade Suspensa (SIEFPAR)
CNPJ: 12.345.678/0001-99 - EMPRESA EXEMPLO LTDA
Parcelamento: 123456789
Valor Suspenso: 10.500,75
Modalidade: PERT
Diagnóstico Fiscal na Procuradoria-Geral da Fazenda Nacional
Pendência - Inscrição em Dívida Ativa (SIDA)
CNPJ: 12.345.678/0001-99
80.6.123.456789-01
ATIVA EM COBRANÇA
15.234,10
Pendência - Parcelamento de Débito Inscrito em DAU (SISPAR)
CNPJ: 12.345.678/0001-99
12345678901234567
EM DIA
8.000,00
Final do Relatório
`

func TestExtractFiscalReportDocument(t *testing.T) {
	ex := Extract(sampleReport)
	if ex.Type != DocTypeFiscalReport {
		t.Fatalf("Type = %v, want %v", ex.Type, DocTypeFiscalReport)
	}
	if ex.Darf != nil || ex.Report == nil {
		t.Fatalf("unexpected payload: report=%v darf=%v", ex.Report, ex.Darf)
	}

	r := ex.Report
	counts := []struct {
		name string
		got  int
	}{
		{"pendencias_debito", len(r.PendenciasDebito)},
		{"debitos_exig_suspensa", len(r.DebitosExigSuspensa)},
		{"parcelamentos_siefpar", len(r.ParcelamentosSiefpar)},
		{"pendencias_inscricao", len(r.PendenciasInscricao)},
		{"pendencias_parcelamento", len(r.PendenciasParcelamento)},
	}
	for _, c := range counts {
		if c.got != 1 {
			t.Errorf("%s: got %d records, want 1", c.name, c.got)
		}
	}

	if got := r.PendenciasDebito[0].Situacao; got != "DEVEDOR" {
		t.Errorf("situacao = %q, want DEVEDOR", got)
	}
	if ex.RawText != Preprocess(sampleReport) {
		t.Error("RawText should be the preprocessed text")
	}
	if ex.Payload() != any(ex.Report) {
		t.Error("Payload() should return the report")
	}
}

func TestExtractDarfDocument(t *testing.T) {
	raw := joinLines(
		"MINISTÉRIO DA FAZENDA",
		"Documento de Arrecadação de Receitas Federais",
		"CNPJ: "+cnpj,
		"Valor do Principal: 100,00",
		"Valor da Multa: 10,00",
		"Valor dos Juros: 5,00",
	)

	ex := Extract(raw)
	if ex.Type != DocTypeDarf || ex.Darf == nil {
		t.Fatalf("Extract() type = %v darf = %v", ex.Type, ex.Darf)
	}
	if ex.Darf.ValorTotal != 115 {
		t.Errorf("valor_total = %v, want 115", ex.Darf.ValorTotal)
	}
	if ex.Darf.CNPJ != cnpj {
		t.Errorf("cnpj = %q, want %q", ex.Darf.CNPJ, cnpj)
	}
}

func TestExtractAsForcesType(t *testing.T) {
	ex := ExtractAs("Valor do Principal: 7,00", DocTypeDarf)
	if ex.Type != DocTypeDarf || ex.Darf == nil || ex.Darf.ValorTotal != 7 {
		t.Errorf("ExtractAs(darf) = %+v", ex)
	}
}

func TestExtractFiscalReportMatchesSequential(t *testing.T) {
	cleaned := Preprocess(sampleReport)
	got := ExtractFiscalReport(cleaned)

	ls := strings.Split(cleaned, "\n")
	want := FiscalReport{
		PendenciasDebito:       pendenciasDebitoScanner.scan(ls, nil),
		DebitosExigSuspensa:    debitosExigSuspensaScanner.scan(ls, nil),
		ParcelamentosSiefpar:   parcelamentosSiefparScanner.scan(ls, nil),
		PendenciasInscricao:    pendenciasInscricaoScanner.scan(ls, nil),
		PendenciasParcelamento: pendenciasParcelamentoScanner.scan(ls, nil),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parallel run differs from sequential:\n%+v\n%+v", got, want)
	}
}
