package adapters

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"github.com/pepperonas/Affentanz/internal/logging"
)

// DefaultOCRLanguage is used when no language is configured.
const DefaultOCRLanguage = "eng"

// TesseractRecognizer reads text with a lazily created tesseract client.
// The client is not safe for concurrent use, so calls are serialized.
type TesseractRecognizer struct {
	mu       sync.Mutex
	language string
	client   *gosseract.Client
	logger   zerolog.Logger
}

// NewTesseractRecognizer creates a recognizer for the given tesseract
// language, for example "eng" or "deu+eng".
func NewTesseractRecognizer(language string) *TesseractRecognizer {
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultOCRLanguage
	}
	return &TesseractRecognizer{
		language: language,
		logger:   logging.Component("ocr"),
	}
}

// Language returns the configured tesseract language.
func (t *TesseractRecognizer) Language() string {
	return t.language
}

// Recognize returns the text found in img with surrounding whitespace
// removed.
func (t *TesseractRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode capture: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	client, err := t.clientLocked()
	if err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load capture: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (t *TesseractRecognizer) clientLocked() (*gosseract.Client, error) {
	if t.client != nil {
		return t.client, nil
	}
	client := gosseract.NewClient()
	langs := strings.Split(t.language, "+")
	if err := client.SetLanguage(langs...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set ocr language %q: %w", t.language, err)
	}
	t.logger.Debug().Str("language", t.language).Str("version", client.Version()).Msg("tesseract client ready")
	t.client = client
	return client, nil
}

// Close releases the tesseract client.
func (t *TesseractRecognizer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
