package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestTextFromBytes_DocxExtractsParagraphs(t *testing.T) {
	doc := buildDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t>Senior Software Engineer</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := TextFromBytes(context.Background(), doc, MimeDOCX, "cv.docx")
	if err != nil {
		t.Fatalf("extract docx: %v", err)
	}
	if !strings.Contains(text, "Jane Doe") || !strings.Contains(text, "Senior Software Engineer") {
		t.Fatalf("unexpected text: %q", text)
	}
	if !strings.Contains(text, "\n") {
		t.Fatalf("expected paragraph breaks, got %q", text)
	}
}

func TestTextFromBytes_ZipDocxNormalizes(t *testing.T) {
	doc := buildDocx(t, `<w:document xmlns:w="ns"><w:body><w:p><w:r><w:t>content</w:t></w:r></w:p></w:body></w:document>`)

	if _, err := TextFromBytes(context.Background(), doc, "application/zip", "cv.docx"); err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
}

func TestTextFromBytes_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = TextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestTextFromBytes_DocSalvagesReadableRuns(t *testing.T) {
	payload := append([]byte{0xd0, 0xcf, 0x11, 0xe0, 0x00, 0x01}, []byte("Experienced backend developer with Go and PostgreSQL.")...)
	payload = append(payload, 0x00, 0x01, 0x02)

	text, err := TextFromBytes(context.Background(), payload, MimeDOC, "cv.doc")
	if err != nil {
		t.Fatalf("extract doc: %v", err)
	}
	if !strings.Contains(text, "Experienced backend developer") {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestNormalizeMimeType(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		fileName string
		want     string
	}{
		{name: "pdf passthrough", mime: "application/pdf", fileName: "cv.pdf", want: MimePDF},
		{name: "mime with charset", mime: "application/pdf; charset=binary", fileName: "cv.pdf", want: MimePDF},
		{name: "octet stream doc", mime: "application/octet-stream", fileName: "cv.doc", want: MimeDOC},
		{name: "octet stream docx", mime: "application/octet-stream", fileName: "cv.docx", want: MimeDOCX},
		{name: "zip with docx extension", mime: "application/zip", fileName: "cv.docx", want: MimeDOCX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMimeType(tt.mime, tt.fileName, nil); got != tt.want {
				t.Fatalf("NormalizeMimeType(%q, %q) = %q, want %q", tt.mime, tt.fileName, got, tt.want)
			}
		})
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported("application/pdf", "cv.pdf", nil) {
		t.Fatalf("expected pdf supported")
	}
	if IsSupported("image/png", "cv.png", nil) {
		t.Fatalf("expected png unsupported")
	}
}
