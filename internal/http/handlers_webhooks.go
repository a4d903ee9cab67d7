package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"michaucha/internal/core"
	"michaucha/internal/parser"
	"michaucha/internal/services"
	"michaucha/internal/telegram"
)

const (
	maxMediaBytes  = 20 << 20
	webhookTimeout = 60 * time.Second
	n8nSecretHdr   = "x-n8n-secret"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// handleTelegram always answers 200 so Telegram does not redeliver; replies
// go out through the messenger.
func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	var upd telegram.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&upd); err != nil {
		writeError(w, r, invalid("malformed update"))
		return
	}
	ok := func() { NewResponse().JSON(map[string]bool{"ok": true}).Write(w) }
	if upd.Message == nil {
		ok()
		return
	}
	msg := upd.Message
	ctx, cancel := context.WithTimeout(r.Context(), webhookTimeout)
	defer cancel()

	var (
		reply services.Reply
		err   error
	)
	switch {
	case msg.Voice != nil:
		reply, err = s.telegramVoice(ctx, msg.Voice)
	case strings.TrimSpace(msg.Text) != "":
		reply, err = s.svc.Assistant.HandleText(ctx, msg.Text)
	default:
		ok()
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "Telegram message failed", "chat_id", msg.Chat.ID, "error", err)
	}

	for _, text := range reply.Messages {
		s.sendChat(ctx, msg.Chat.ID, text)
	}
	ok()
}

func (s *Server) telegramVoice(ctx context.Context, v *telegram.Voice) (services.Reply, error) {
	if s.opts.Files == nil {
		return s.svc.Assistant.HandleVoice(ctx, nil, v.MIMEType)
	}
	audio, err := s.opts.Files.DownloadFile(ctx, v.FileID)
	if err != nil {
		return services.Reply{Kind: services.ReplyFailed, Messages: []string{"❌ No pude descargar el audio."}},
			fmt.Errorf("download voice: %w", err)
	}
	return s.svc.Assistant.HandleVoice(ctx, audio, v.MIMEType)
}

func (s *Server) sendChat(ctx context.Context, chatID int64, text string) {
	if s.opts.Messenger == nil {
		slog.InfoContext(ctx, "Chat reply (no messenger configured)", "chat_id", chatID, "text", text)
		return
	}
	if err := s.opts.Messenger.SendMessage(ctx, chatID, text); err != nil {
		slog.ErrorContext(ctx, "Failed to send chat reply", "chat_id", chatID, "error", err)
	}
}

type twiml struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// handleWhatsApp handles a Twilio form post and answers with TwiML.
func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, r, invalid("malformed form"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), webhookTimeout)
	defer cancel()

	var (
		reply services.Reply
		err   error
	)
	numMedia, _ := strconv.Atoi(r.PostForm.Get("NumMedia"))
	mediaType := r.PostForm.Get("MediaContentType0")
	switch {
	case numMedia > 0 && strings.Contains(mediaType, "audio"):
		var audio []byte
		audio, err = s.fetchMedia(ctx, r.PostForm.Get("MediaUrl0"))
		if err == nil {
			reply, err = s.svc.Assistant.HandleVoice(ctx, audio, mediaType)
		}
	case strings.TrimSpace(r.PostForm.Get("Body")) != "":
		reply, err = s.svc.Assistant.HandleText(ctx, r.PostForm.Get("Body"))
	}
	if err != nil {
		slog.ErrorContext(ctx, "WhatsApp message failed", "from", r.PostForm.Get("From"), "error", err)
	}

	out, _ := xml.Marshal(twiml{Message: whatsAppText(reply)})
	NewResponse().XML(xml.Header + string(out)).Write(w)
}

// whatsAppText uses the short WhatsApp wording for the common cases.
func whatsAppText(r services.Reply) string {
	switch r.Kind {
	case "":
		return ""
	case services.ReplyTransaction:
		if r.Transaction != nil && r.Transcript == "" {
			return fmt.Sprintf("✅ Gasto: %s en %s", core.FormatCLP(r.Transaction.Amount), r.Transaction.CategoryName)
		}
	case services.ReplyNotUnderstood:
		return "No pude entender el gasto."
	}
	return r.Text()
}

func (s *Server) fetchMedia(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("missing media url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.opts.MediaClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
}

// n8nPayload carries either free text or explicit fields.
type n8nPayload struct {
	Text          string `json:"text" validate:"required_without=Amount,max=500"`
	Amount        int64  `json:"amount" validate:"omitempty,gt=0"`
	Category      string `json:"category" validate:"omitempty,max=100"`
	Description   string `json:"description" validate:"omitempty,max=500"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=CASH VISA cash visa"`
	Date          string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (s *Server) handleN8N(w http.ResponseWriter, r *http.Request) {
	if s.opts.N8NSecret == "" ||
		subtle.ConstantTimeCompare([]byte(r.Header.Get(n8nSecretHdr)), []byte(s.opts.N8NSecret)) != 1 {
		ErrorResponse(http.StatusUnauthorized, "unauthorized").Write(w)
		return
	}

	var p n8nPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&p); err != nil {
		writeError(w, r, invalid("malformed JSON"))
		return
	}
	if err := validate.Struct(p); err != nil {
		writeError(w, r, invalid(validationMessage(err)))
		return
	}

	draft, err := s.n8nDraft(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if draft == nil {
		reply, err := s.svc.Assistant.HandleText(r.Context(), p.Text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		NewResponse().JSON(toAssistantView(reply)).Write(w)
		return
	}

	tx, err := s.svc.Transactions.CreateAndSettle(r.Context(), *draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(toTransactionView(tx)).Write(w)
}

// n8nDraft returns nil when the payload is free text for the assistant.
func (s *Server) n8nDraft(p n8nPayload) (*parser.TransactionDraft, error) {
	if p.Amount == 0 {
		return nil, nil
	}
	method, err := core.ParsePaymentMethod(p.PaymentMethod)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(p.Date, s.opts.Now().Location())
	if err != nil {
		return nil, err
	}
	desc := p.Description
	if desc == "" {
		desc = p.Text
	}
	return &parser.TransactionDraft{
		Amount:        p.Amount,
		Category:      p.Category,
		Description:   desc,
		PaymentMethod: method,
		Date:          date,
	}, nil
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid payload"
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

type assistantView struct {
	Kind        services.ReplyKind `json:"kind"`
	Reply       string             `json:"reply"`
	Transaction *transactionView   `json:"transaction,omitempty"`
	ExpenseName string             `json:"expenseName,omitempty"`
}

func toAssistantView(r services.Reply) assistantView {
	v := assistantView{Kind: r.Kind, Reply: r.Text(), ExpenseName: r.ExpenseName}
	if r.Transaction != nil {
		tv := toTransactionView(*r.Transaction)
		v.Transaction = &tv
	}
	return v
}
