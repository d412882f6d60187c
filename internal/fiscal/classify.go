package fiscal

import "strings"

// DocType identifies which extractor a document is routed to.
type DocType string

const (
	DocTypeDarf         DocType = "darf"
	DocTypeFiscalReport DocType = "fiscal_report"
)

var darfSignatures = []string{
	"DOCUMENTO DE ARRECADAÇÃO",
	"DARF",
	"Documento de Arrecadação de Receitas Federais",
}

// ClassifyDocument inspects the raw, unprocessed text for DARF signature phrases.
func ClassifyDocument(text string) DocType {
	for _, sig := range darfSignatures {
		if strings.Contains(text, sig) {
			return DocTypeDarf
		}
	}
	return DocTypeFiscalReport
}

// ParseDocType accepts the wire names of the document types.
func ParseDocType(s string) (DocType, bool) {
	switch DocType(strings.ToLower(strings.TrimSpace(s))) {
	case DocTypeDarf:
		return DocTypeDarf, true
	case DocTypeFiscalReport:
		return DocTypeFiscalReport, true
	}
	return "", false
}
