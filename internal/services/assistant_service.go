package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"michaucha/internal/core"
	"michaucha/internal/parser"
	"michaucha/internal/ports"
)

type ReplyKind string

const (
	ReplyTransaction   ReplyKind = "transaction"
	ReplyFixedPayment  ReplyKind = "fixed_payment"
	ReplyNotUnderstood ReplyKind = "not_understood"
	ReplyUnavailable   ReplyKind = "unavailable"
	ReplyFailed        ReplyKind = "failed"
)

const (
	msgNotUnderstood      = "No entendí ese gasto. Intenta: 'Almuerzo 5000'"
	msgVoiceNotUnderstood = "❌ No pude detectar un gasto en ese audio."
	msgVoiceUnavailable   = "🎙 Los mensajes de voz no están disponibles."
)

// Reply is what a chat channel should send back, in order.
type Reply struct {
	Kind        ReplyKind         `json:"kind"`
	Transcript  string            `json:"transcript,omitempty"`
	Messages    []string          `json:"messages"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	ExpenseName string            `json:"expenseName,omitempty"`
}

// Text joins the messages for channels that accept a single reply.
func (r Reply) Text() string {
	return strings.Join(r.Messages, "\n")
}

// AssistantService is the entry point for chat and voice input.
type AssistantService struct {
	parser       *parser.Parser
	transactions *TransactionService
	fixed        *FixedExpenseService
	transcriber  ports.Transcriber
}

func NewAssistantService(p *parser.Parser, transactions *TransactionService, fixed *FixedExpenseService, transcriber ports.Transcriber) *AssistantService {
	return &AssistantService{parser: p, transactions: transactions, fixed: fixed, transcriber: transcriber}
}

// HandleText interprets an utterance and applies it. The reply is always
// usable; the error reports storage failures for logging.
func (s *AssistantService) HandleText(ctx context.Context, text string) (Reply, error) {
	res, err := s.parser.Parse(text)
	if errors.Is(err, core.ErrParseFailure) {
		return Reply{Kind: ReplyNotUnderstood, Messages: []string{msgNotUnderstood}}, nil
	}
	if err != nil {
		return failed(err), err
	}

	switch res.Kind {
	case parser.KindFixedPayment:
		return s.settle(ctx, res.FixedPayment.ExpenseName)
	default:
		tx, err := s.transactions.Create(ctx, *res.Transaction)
		if err != nil {
			return failed(err), err
		}
		msg := fmt.Sprintf("✅ Gasto guardado: %s en %s", core.FormatCLP(tx.Amount), tx.CategoryName)
		return Reply{Kind: ReplyTransaction, Messages: []string{msg}, Transaction: &tx}, nil
	}
}

func (s *AssistantService) settle(ctx context.Context, name string) (Reply, error) {
	if _, err := s.fixed.ToggleByName(ctx, name, true); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			msg := fmt.Sprintf("❌ No encontré el gasto fijo '%s'.", name)
			return Reply{Kind: ReplyFailed, Messages: []string{msg}, ExpenseName: name}, nil
		}
		return failed(err), err
	}
	msg := fmt.Sprintf("✅ Gasto fijo pagado: %s", name)
	return Reply{Kind: ReplyFixedPayment, Messages: []string{msg}, ExpenseName: name}, nil
}

// HandleVoice transcribes audio and handles the transcript as text.
func (s *AssistantService) HandleVoice(ctx context.Context, audio []byte, mimeType string) (Reply, error) {
	if s.transcriber == nil {
		return Reply{Kind: ReplyUnavailable, Messages: []string{msgVoiceUnavailable}}, nil
	}
	text, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		slog.ErrorContext(ctx, "Transcription failed", "mime_type", mimeType, "error", err)
		return failed(err), err
	}

	heard := fmt.Sprintf("🗣 Recibido: \"%s\"", text)
	reply, err := s.HandleText(ctx, text)
	reply.Transcript = text
	switch reply.Kind {
	case ReplyNotUnderstood:
		reply.Messages = []string{msgVoiceNotUnderstood}
	case ReplyTransaction:
		tx := reply.Transaction
		reply.Messages = []string{fmt.Sprintf("✅ Registrado: %s - %s (%s)", core.FormatCLP(tx.Amount), tx.CategoryName, tx.PaymentMethod)}
	}
	reply.Messages = append([]string{heard}, reply.Messages...)
	return reply, err
}

func failed(err error) Reply {
	return Reply{Kind: ReplyFailed, Messages: []string{"❌ Error al guardar: " + err.Error()}}
}
