// Package ocr runs optical character recognition through AWS Textract.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

var ErrEmptyDocument = errors.New("empty document")

type Line struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
}

// Result is the OCR summary returned to clients as textractResponse.
type Result struct {
	Pages        int    `json:"pages"`
	Lines        []Line `json:"lines"`
	ModelVersion string `json:"modelVersion,omitempty"`
}

// Text joins every detected line with "\n".
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	lines := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, l.Text)
	}
	return strings.Join(lines, "\n")
}

type Engine interface {
	DetectText(ctx context.Context, document []byte) (*Result, error)
}

type textractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

type TextractEngine struct {
	api     textractAPI
	timeout time.Duration
}

func NewTextractEngine(cfg aws.Config, timeout time.Duration) *TextractEngine {
	return newTextractEngine(textract.NewFromConfig(cfg), timeout)
}

func newTextractEngine(api textractAPI, timeout time.Duration) *TextractEngine {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TextractEngine{api: api, timeout: timeout}
}

// DetectText sends the raw bytes to DetectDocumentText and keeps the LINE blocks in order.
func (e *TextractEngine) DetectText(ctx context.Context, document []byte) (*Result, error) {
	if len(document) == 0 {
		return nil, ErrEmptyDocument
	}
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.api.DetectDocumentText(callCtx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: document},
	})
	if err != nil {
		return nil, fmt.Errorf("textract detect document text failed: %w", err)
	}
	return resultFromOutput(out), nil
}

func resultFromOutput(out *textract.DetectDocumentTextOutput) *Result {
	res := &Result{Lines: make([]Line, 0)}
	if out == nil {
		return res
	}
	if out.DocumentMetadata != nil && out.DocumentMetadata.Pages != nil {
		res.Pages = int(*out.DocumentMetadata.Pages)
	}
	res.ModelVersion = aws.ToString(out.DetectDocumentTextModelVersion)
	for _, block := range out.Blocks {
		if block.BlockType != types.BlockTypeLine {
			continue
		}
		res.Lines = append(res.Lines, Line{
			Text:       aws.ToString(block.Text),
			Confidence: aws.ToFloat32(block.Confidence),
		})
	}
	return res
}
