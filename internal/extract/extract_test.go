package extract

import (
	"testing"

	"careerboost/internal/errors"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		fileName    string
		contentType string
		want        Kind
		wantErr     bool
	}{
		{"cv.pdf", "application/pdf", KindPDF, false},
		{"cv", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", KindDOCX, false},
		{"cv.md", "text/plain; charset=utf-8", KindMarkdown, false},
		{"cv.txt", "", KindText, false},
		{"CV.HTML", "application/octet-stream", KindHTML, false},
		{"notes", "text/plain", KindText, false},
		{"cv.doc", "application/msword", "", true},
		{"image.png", "", "", true},
	}
	for _, tt := range tests {
		got, err := Detect(tt.fileName, tt.contentType)
		if (err != nil) != tt.wantErr {
			t.Errorf("Detect(%q, %q) error = %v", tt.fileName, tt.contentType, err)
			continue
		}
		if tt.wantErr && !errors.HasCode(err, errors.ErrCodeUnsupportedFileType) {
			t.Errorf("Detect(%q) error code = %v", tt.fileName, err)
		}
		if got != tt.want {
			t.Errorf("Detect(%q, %q) = %q, want %q", tt.fileName, tt.contentType, got, tt.want)
		}
	}
}

func TestText_PlainFormats(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		fileName string
		want     string
	}{
		{"text", "Jane Doe  \r\n\r\n\r\n\r\nEngineer\n", "cv.txt", "Jane Doe\n\nEngineer"},
		{"markdown", "# Jane\n\n- Go\n", "cv.md", "# Jane\n\n- Go"},
		{"html", "<h1>Jane</h1><p>Go <b>engineer</b></p>", "cv.html", "Jane Go engineer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Text([]byte(tt.data), tt.fileName, "")
			if err != nil {
				t.Fatalf("Text() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestText_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		fileName string
		code     string
	}{
		{"empty", nil, "cv.txt", errors.ErrCodeInvalidRequest},
		{"whitespace", []byte("  \n\n "), "cv.txt", errors.ErrCodeExtractionFailed},
		{"invalid utf8", []byte{0xff, 0xfe, 0x00}, "cv.txt", errors.ErrCodeInvalidFormat},
		{"broken pdf", []byte("not a pdf"), "cv.pdf", errors.ErrCodeExtractionFailed},
		{"broken docx", []byte("not a zip"), "cv.docx", errors.ErrCodeExtractionFailed},
		{"unsupported", []byte("x"), "cv.exe", errors.ErrCodeUnsupportedFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Text(tt.data, tt.fileName, "")
			if !errors.HasCode(err, tt.code) {
				t.Errorf("Text() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestKindContentType(t *testing.T) {
	if got := KindDOCX.ContentType(); got != mimeDOCX {
		t.Errorf("ContentType() = %q", got)
	}
	if got := KindText.ContentType(); got != "text/plain" {
		t.Errorf("ContentType() = %q", got)
	}
}
