// Package transcribe turns voice notes into text with Gemini.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

const prompt = "Transcribe este audio en español de Chile. " +
	"Responde solo con el texto transcrito, sin comillas ni comentarios. " +
	"Escribe los montos como los dice la persona."

// ErrEmptyTranscript is returned when the model hears nothing.
var ErrEmptyTranscript = errors.New("empty transcript")

// generator is the subset of genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Gemini struct {
	models generator
	model  string
}

// NewGemini creates a client for apiKey. An empty model uses DefaultModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{models: client.Models, model: model}, nil
}

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyTranscript
	}
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: normalizeMIME(mimeType), Data: audio}},
		},
	}}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.Trim(strings.TrimSpace(resp.Text()), `"`)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// normalizeMIME drops parameters such as "; codecs=opus" and defaults to
// Telegram's voice format.
func normalizeMIME(m string) string {
	m, _, _ = strings.Cut(m, ";")
	m = strings.TrimSpace(strings.ToLower(m))
	if m == "" {
		return "audio/ogg"
	}
	return m
}
