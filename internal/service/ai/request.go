package ai

import (
	"context"
	"errors"
	"time"
)

// ProviderGemini is the only provider that can read uploaded files.
const ProviderGemini = "gemini"

// ErrFilePartsUnsupported is returned by generators that cannot read uploaded files.
var ErrFilePartsUnsupported = errors.New("provider cannot read uploaded files")

// Part is one element of a generation request: either text or a remote file.
type Part struct {
	Text     string
	FileURI  string
	MIMEType string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func FilePart(uri, mimeType string) Part {
	return Part{FileURI: uri, MIMEType: mimeType}
}

// IsFile reports whether the part references an uploaded file.
func (p Part) IsFile() bool {
	return p.FileURI != ""
}

// Request is a provider-neutral generation request.
type Request struct {
	Model            string
	Parts            []Part
	Temperature      float64
	TopP             float64
	MaxOutputTokens  int
	ResponseMIMEType string
	// Timeout overrides the provider's request timeout when positive.
	Timeout time.Duration
}

// HasFiles reports whether any part references an uploaded file.
func (r Request) HasFiles() bool {
	for _, p := range r.Parts {
		if p.IsFile() {
			return true
		}
	}
	return false
}

// ChunkFunc receives the answer accumulated so far after every streamed chunk.
type ChunkFunc func(accumulated string) error

// Generator streams a model answer and returns the full text.
type Generator interface {
	Stream(ctx context.Context, req Request, fn ChunkFunc) (string, error)
}
