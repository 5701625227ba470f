package constants

import (
	"path/filepath"
	"strings"
)

// DocumentType is the declared kind of an uploaded case document.
type DocumentType string

// Stable values (store these exact strings in DB).
const (
	StatementOfContributions DocumentType = "statement_of_contributions"
	MedicalReport            DocumentType = "medical_report"
	Generic                  DocumentType = "generic"
)

var allDocumentTypes = []DocumentType{StatementOfContributions, MedicalReport, Generic}

// DocumentTypes returns the accepted document types as strings.
func DocumentTypes() []string {
	out := make([]string, len(allDocumentTypes))
	for i, t := range allDocumentTypes {
		out[i] = string(t)
	}
	return out
}

// ParseDocumentType accepts the canonical values plus a few legacy aliases.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "statement_of_contributions", "cnis":
		return StatementOfContributions, true
	case "medical_report", "laudo", "laudo_medico":
		return MedicalReport, true
	case "generic", "outro", "":
		return Generic, true
	}
	return "", false
}

// Media types the text extractor knows how to route.
const (
	MediaPDF   = "application/pdf"
	MediaXPDF  = "application/x-pdf"
	MediaText  = "text/plain"
	MediaOctet = "application/octet-stream"
)

// extToMedia maps lowercased extensions (sans '.') to media types.
var extToMedia = map[string]string{
	"pdf":  MediaPDF,
	"txt":  MediaText,
	"text": MediaText,
	"csv":  "text/csv",
	"md":   "text/markdown",
	"html": "text/html",
	"htm":  "text/html",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MediaTypeForPath guesses a media type from the file extension.
func MediaTypeForPath(path string) string {
	if mt, ok := extToMedia[NormalizeExt(filepath.Ext(path))]; ok {
		return mt
	}
	return MediaOctet
}

// IsPDF reports whether the declared media type (or, if empty, the path) denotes a PDF.
func IsPDF(mediaType, path string) bool {
	mt := baseMediaType(mediaType)
	if mt == "" {
		return NormalizeExt(filepath.Ext(path)) == "pdf"
	}
	return mt == MediaPDF || mt == MediaXPDF
}

// IsText reports whether the declared media type is a text/* type.
func IsText(mediaType string) bool {
	return strings.HasPrefix(baseMediaType(mediaType), "text/")
}

// baseMediaType drops parameters such as "; charset=utf-8".
func baseMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
