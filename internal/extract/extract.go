// Package extract turns uploaded file bytes into plain text. It trusts
// magic bytes over the declared media type: a file claiming to be a PDF
// without the PDF header is corrupt, not unsupported.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/apperr"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/config"
)

// Text extracts plain text from data according to mediaType. Whitespace
// runs are collapsed to single spaces. Empty output is not an error: a
// valid container with no text yields "".
func Text(data []byte, mediaType string) (string, error) {
	if len(data) == 0 {
		return "", apperr.New(apperr.CodeCorruptContent, fmt.Errorf("empty file"))
	}

	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case config.MediaTypePDF:
		return extractPDF(data)
	case config.MediaTypeDOCX:
		return extractDOCX(data)
	default:
		return "", apperr.Newf(apperr.CodeUnsupportedMediaType, "unsupported media type %q", mediaType)
	}
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func extractPDF(data []byte) (text string, err error) {
	if !isPDF(data) {
		return "", apperr.New(apperr.CodeCorruptContent, fmt.Errorf("missing %%PDF header"))
	}
	// The pdf library panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = apperr.New(apperr.CodeCorruptContent, fmt.Errorf("pdf parse panic: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.New(apperr.CodeCorruptContent, fmt.Errorf("pdf reader: %w", err))
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", apperr.New(apperr.CodeCorruptContent, fmt.Errorf("pdf plaintext: %w", err))
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", apperr.New(apperr.CodeCorruptContent, fmt.Errorf("pdf read: %w", err))
	}
	return collapseWhitespace(string(b)), nil
}

func extractDOCX(data []byte) (string, error) {
	if !isZip(data) {
		return "", apperr.New(apperr.CodeCorruptContent, fmt.Errorf("docx is not a zip container"))
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.New(apperr.CodeCorruptContent, fmt.Errorf("docx zip: %w", err))
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", apperr.New(apperr.CodeCorruptContent, fmt.Errorf("docx missing word/document.xml"))
	}

	rc, err := doc.Open()
	if err != nil {
		return "", apperr.New(apperr.CodeCorruptContent, fmt.Errorf("docx open part: %w", err))
	}
	defer rc.Close()

	xmlBytes, err := io.ReadAll(rc)
	if err != nil {
		return "", apperr.New(apperr.CodeCorruptContent, fmt.Errorf("docx read part: %w", err))
	}
	return collapseWhitespace(wordRuns(xmlBytes)), nil
}

// wordRuns gathers the content of every <w:t> element, the text runs of a
// WordprocessingML body.
func wordRuns(xmlBytes []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "t" {
			continue
		}
		var v string
		_ = dec.DecodeElement(&v, &se)
		if v != "" {
			out.WriteString(v)
			out.WriteString(" ")
		}
	}
	return out.String()
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
