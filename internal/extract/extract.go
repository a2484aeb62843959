package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/ledongthuc/pdf"

	"applyforge-backend/internal/shared/storage/object"
)

// Supported document MIME types.
const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupportedType is returned for documents that are not PDF, DOC or DOCX.
var ErrUnsupportedType = errors.New("unsupported document type")

// Text pulls plain text out of a stored CV document.
func Text(ctx context.Context, store object.ObjectStore, fileKey string, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: read: %w", fileKey, mimeType, err)
	}

	text, err := TextFromBytes(ctx, raw, mimeType, fileName)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}
	return text, nil
}

// TextFromBytes extracts text from an in-memory payload.
func TextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := NormalizeMimeType(mimeType, fileName, data)
	switch normalized {
	case MimePDF:
		return extractPDF(data)
	case MimeDOCX:
		return extractDOCX(data)
	case MimeDOC:
		return extractDOC(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, normalized)
	}
}

// IsSupported reports whether a MIME type (after normalization) is one the
// extractor can handle.
func IsSupported(mimeType string, fileName string, data []byte) bool {
	switch NormalizeMimeType(mimeType, fileName, data) {
	case MimePDF, MimeDOC, MimeDOCX:
		return true
	default:
		return false
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return stripDocxXML(string(raw)), nil
}

// extractDOC salvages readable text from a legacy binary .doc file. The OLE
// container format is not parsed; instead printable runs are collected, which
// recovers most body text from real-world documents.
func extractDOC(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty doc data")
	}

	ascii := salvagePrintableRuns(data, 4)
	utf := salvageUTF16Runs(data, 4)

	text := ascii
	if len(utf) > len(ascii) {
		text = utf
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no readable text found in doc file")
	}
	return strings.TrimSpace(text), nil
}

func salvagePrintableRuns(data []byte, minRun int) string {
	var out strings.Builder
	var run []byte
	flush := func() {
		if len(run) >= minRun {
			out.Write(run)
			out.WriteByte(' ')
		}
		run = run[:0]
	}
	for _, b := range data {
		if b == '\r' || b == '\n' || b == '\t' || (b >= 0x20 && b < 0x7f) {
			run = append(run, b)
			continue
		}
		flush()
	}
	flush()
	return strings.TrimSpace(out.String())
}

func salvageUTF16Runs(data []byte, minRun int) string {
	if len(data) < 2 {
		return ""
	}
	var out strings.Builder
	var run []uint16
	flush := func() {
		if len(run) >= minRun {
			for _, r := range utf16.Decode(run) {
				out.WriteRune(r)
			}
			out.WriteByte(' ')
		}
		run = run[:0]
	}
	for i := 0; i+1 < len(data); i += 2 {
		u := uint16(data[i]) | uint16(data[i+1])<<8
		r := rune(u)
		if u >= 0xd800 && u <= 0xdfff {
			flush()
			continue
		}
		if r == '\r' || r == '\n' || r == '\t' || unicode.IsPrint(r) {
			run = append(run, u)
			continue
		}
		flush()
	}
	flush()
	return strings.TrimSpace(out.String())
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if last := buf.Len(); last > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// NormalizeMimeType resolves the generic application/zip sniff result and
// extension-only uploads to a concrete document type.
func NormalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))

	ext := strings.ToLower(filepath.Ext(fileName))
	if clean == "application/octet-stream" || clean == "" {
		switch ext {
		case ".pdf":
			return MimePDF
		case ".doc":
			return MimeDOC
		case ".docx":
			return MimeDOCX
		}
	}
	if clean != "application/zip" {
		return clean
	}

	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}

	switch ext {
	case ".docx":
		return MimeDOCX
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	default:
		return clean
	}
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		switch name {
		case "word/document.xml":
			return MimeDOCX
		case "xl/workbook.xml":
			return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		case "ppt/presentation.xml":
			return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
		}
	}
	return ""
}
