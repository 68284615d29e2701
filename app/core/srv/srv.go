// Package srv bundles the external capabilities the logic layer
// consumes: the embedding provider and the optional OCR service.
package srv

import (
	"github.com/quillmind-ai/quillmind/pkg/extractor"
)

type Srv struct {
	ai  *AI
	ocr extractor.OCRDriver
}

type ApplyFunc func(*Srv)

func SetupSrvs(opts ...ApplyFunc) *Srv {
	s := &Srv{}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Srv) AI() AIDriver {
	return s.ai
}

// OCR returns the configured image text recognizer, nil when none is
// configured. Callers treat nil as "images carry no readable text".
func (s *Srv) OCR() extractor.OCRDriver {
	return s.ocr
}
