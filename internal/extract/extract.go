// Package extract turns uploaded resume files into plain text
package extract

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"careerboost/internal/errors"
	"careerboost/internal/resume"
)

// Kind is a supported document format
type Kind string

const (
	KindPDF      Kind = "pdf"
	KindDOCX     Kind = "docx"
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ContentType returns the MIME type stored alongside an upload of kind k
func (k Kind) ContentType() string {
	switch k {
	case KindPDF:
		return mimePDF
	case KindDOCX:
		return mimeDOCX
	case KindMarkdown:
		return "text/markdown"
	case KindHTML:
		return "text/html"
	}
	return "text/plain"
}

// Detect picks the document kind from the content type, falling back to
// the file extension.
func Detect(fileName, contentType string) (Kind, error) {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case mimePDF:
			return KindPDF, nil
		case mimeDOCX:
			return KindDOCX, nil
		case "text/markdown", "text/x-markdown":
			return KindMarkdown, nil
		case "text/html":
			return KindHTML, nil
		case "text/plain":
			if k, ok := byExtension(fileName); ok {
				return k, nil
			}
			return KindText, nil
		}
	}
	if k, ok := byExtension(fileName); ok {
		return k, nil
	}
	return "", errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
		fmt.Sprintf("unsupported file type: %s", describe(fileName, contentType)), nil).
		WithContext("file_name", fileName).
		WithContext("content_type", contentType)
}

func byExtension(fileName string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return KindPDF, true
	case ".docx":
		return KindDOCX, true
	case ".txt", ".text":
		return KindText, true
	case ".md", ".markdown":
		return KindMarkdown, true
	case ".html", ".htm":
		return KindHTML, true
	}
	return "", false
}

func describe(fileName, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if ext := filepath.Ext(fileName); ext != "" {
		return ext
	}
	return "unknown"
}

// Text extracts the plain text of an uploaded document
func Text(data []byte, fileName, contentType string) (string, error) {
	kind, err := Detect(fileName, contentType)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "uploaded file is empty", nil).
			WithContext("file_name", fileName)
	}

	var text string
	switch kind {
	case KindPDF:
		text, err = pdfText(data)
	case KindDOCX:
		text, err = docxText(data)
	case KindHTML:
		text = resume.PlainText(string(data))
	default:
		if !utf8.Valid(data) {
			return "", errors.NewValidationError(errors.ErrCodeInvalidFormat, "text file is not valid UTF-8", nil).
				WithContext("file_name", fileName)
		}
		text = string(data)
	}
	if err != nil {
		return "", err
	}

	text = normalize(text)
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeExtractionFailed,
			"no text could be extracted from the file", nil).
			WithContext("file_name", fileName)
	}
	return text, nil
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeExtractionFailed, "failed to read pdf", err)
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	docxTab          = regexp.MustCompile(`<w:tab/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
	xmlEntities      = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")
)

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeExtractionFailed, "failed to parse docx", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	return xmlEntities.Replace(content), nil
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// normalize trims trailing spaces and collapses runs of blank lines
func normalize(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\u00a0")
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankRuns.ReplaceAllString(text, "\n\n"))
}
