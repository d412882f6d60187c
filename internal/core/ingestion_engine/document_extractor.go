package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"golang.org/x/text/unicode/norm"

	"github.com/markdave123-py/fiscalextract/internal/core"
)

var _ core.TextExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// ExtractText converts the document with docconv and returns the text in NFC form, so
// accents that PDF fonts emit decomposed compare equal to the precomposed patterns.
func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", core.ErrNoText
	}

	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return "", fmt.Errorf("docconv: convert %s: %w", contentType, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return normalizeText(res.Body)
}

func normalizeText(body string) (string, error) {
	text := norm.NFC.String(body)
	if strings.TrimSpace(text) == "" {
		return "", core.ErrNoText
	}
	return text, nil
}
