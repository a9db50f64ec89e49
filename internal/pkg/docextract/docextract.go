// Package docextract pulls plain text out of uploaded documents without OCR.
package docextract

import (
	"errors"
	"mime"
	"strings"
	"unicode/utf8"
)

// Kind is the extraction path selected for a declared MIME type.
type Kind int

const (
	KindUnsupported Kind = iota
	KindPDF
	KindWord
	KindExcel
	KindPowerPoint
	KindText
	KindImage
)

var ErrInvalidDocument = errors.New("invalid document")

var kindsByMIME = map[string]Kind{
	"application/pdf": KindPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": KindWord,
	"application/msword": KindWord,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": KindExcel,
	"application/vnd.ms-excel": KindExcel,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": KindPowerPoint,
	"application/vnd.ms-powerpoint":                                             KindPowerPoint,
	"text/plain":                                                                KindText,
	"text/csv":                                                                  KindText,
	"image/png":                                                                 KindImage,
	"image/jpeg":                                                                KindImage,
	"image/jpg":                                                                 KindImage,
	"image/tiff":                                                                KindImage,
}

// NormalizeMIME lower-cases a Content-Type value and strips its parameters.
func NormalizeMIME(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Classify maps a declared MIME type to its extraction path.
func Classify(contentType string) Kind {
	return kindsByMIME[NormalizeMIME(contentType)]
}

// Method is the processingMethod label reported for a kind.
func (k Kind) Method() string {
	switch k {
	case KindPDF:
		return "Direct PDF extraction"
	case KindWord:
		return "Direct Word extraction"
	case KindExcel:
		return "Direct Excel extraction"
	case KindPowerPoint:
		return "Direct PowerPoint extraction"
	case KindText:
		return "Direct text extraction"
	case KindImage:
		return "AWS Textract OCR"
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindWord:
		return "word"
	case KindExcel:
		return "excel"
	case KindPowerPoint:
		return "powerpoint"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	default:
		return "unsupported"
	}
}

// Extract runs the direct extractor for kind. Images have no direct extractor.
func Extract(kind Kind, data []byte) (string, error) {
	switch kind {
	case KindPDF:
		return ExtractPDF(data)
	case KindWord:
		return ExtractWord(data)
	case KindExcel:
		return ExtractExcel(data)
	case KindPowerPoint:
		return ExtractPowerPoint(data)
	case KindText:
		return ExtractText(data), nil
	default:
		return "", ErrInvalidDocument
	}
}

// ExtractText decodes raw bytes as UTF-8, replacing invalid sequences.
func ExtractText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

// Stats are the word and character counts reported with extracted text.
type Stats struct {
	WordCount      int `json:"wordCount"`
	CharacterCount int `json:"characterCount"`
}

func Count(text string) Stats {
	return Stats{
		WordCount:      len(strings.Fields(text)),
		CharacterCount: utf8.RuneCountInString(text),
	}
}
