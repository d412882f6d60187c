package fiscal

import (
	"strings"

	"golang.org/x/sync/errgroup"
)

// Extraction is the outcome of running the engine on one document.
type Extraction struct {
	Type    DocType
	Report  *FiscalReport
	Darf    *DarfData
	RawText string // preprocessed text the extractors ran on
}

// Payload returns the structured data for the document type.
func (e Extraction) Payload() any {
	if e.Type == DocTypeDarf {
		return e.Darf
	}
	return e.Report
}

// ExtractFiscalReport runs every section scanner over text. The scanners share the line
// slice read-only and each fills its own field, so they run side by side.
func ExtractFiscalReport(text string, opts ...Option) FiscalReport {
	o := buildOptions(opts)
	lines := strings.Split(text, "\n")

	var r FiscalReport
	var g errgroup.Group
	g.Go(func() error {
		r.PendenciasDebito = pendenciasDebitoScanner.scan(lines, o.trace)
		return nil
	})
	g.Go(func() error {
		r.DebitosExigSuspensa = debitosExigSuspensaScanner.scan(lines, o.trace)
		return nil
	})
	g.Go(func() error {
		r.ParcelamentosSiefpar = parcelamentosSiefparScanner.scan(lines, o.trace)
		return nil
	})
	g.Go(func() error {
		r.PendenciasInscricao = pendenciasInscricaoScanner.scan(lines, o.trace)
		return nil
	})
	g.Go(func() error {
		r.PendenciasParcelamento = pendenciasParcelamentoScanner.scan(lines, o.trace)
		return nil
	})
	// scanners cannot fail; Wait only joins them
	g.Wait()
	return r
}

// Extract preprocesses raw text, decides its type from the raw signatures and runs the
// matching extractor.
func Extract(raw string, opts ...Option) Extraction {
	return ExtractAs(raw, ClassifyDocument(raw), opts...)
}

// ExtractAs is Extract with the document type fixed by the caller.
func ExtractAs(raw string, docType DocType, opts ...Option) Extraction {
	cleaned := Preprocess(raw)
	ex := Extraction{Type: docType, RawText: cleaned}
	if docType == DocTypeDarf {
		d := ExtractDarf(cleaned, opts...)
		ex.Darf = &d
		return ex
	}
	r := ExtractFiscalReport(cleaned, opts...)
	ex.Report = &r
	return ex
}
