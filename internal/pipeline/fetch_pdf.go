package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractTextFromPDF はPDFのバイト列から全ページのテキストを抽出する
func extractTextFromPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			debugf("pdf: page %d unreadable: %v", i, err)
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return normalizeWhitespace(sb.String()), nil
}
