// Package reset implements the password reset notification worker: it
// renders the reset email from an embedded template and dispatches it via
// the mail transport, under the same redelivery policy as the restock worker
// but with no database footprint.
package reset

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/distribuidora-pyg/workers-go/internal/mail"
	"github.com/distribuidora-pyg/workers-go/internal/messaging"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	templateName = "password-reset"

	subject = "Recupera tu contraseña - Distribuidora Perros y Gatos"
)

// Request is a validated password reset notification order.
type Request struct {
	RequestID string
	To        string
	ResetLink string
}

type wireRequest struct {
	RequestID *string `json:"requestId" validate:"required"`
	To        *string `json:"to" validate:"required,email"`
	ResetLink *string `json:"reset_link" validate:"required"`
}

var validate = validator.New()

type templateData struct {
	ResetLink string
	Year      int
}

type Handler struct {
	mailer mail.Mailer
	tmpl   *template.Template
	logger zerolog.Logger
	now    func() time.Time
}

func NewHandler(mailer mail.Mailer, logger zerolog.Logger) (*Handler, error) {
	tmpl, err := loadTemplate(templateName)
	if err != nil {
		return nil, err
	}
	return &Handler{
		mailer: mailer,
		tmpl:   tmpl,
		logger: logger,
		now:    time.Now,
	}, nil
}

func loadTemplate(name string) (*template.Template, error) {
	src, err := templatesFS.ReadFile("templates/" + name + ".html")
	if err != nil {
		return nil, fmt.Errorf("template %s not found: %w", name, err)
	}
	return template.New(name).Parse(string(src))
}

// Handle is the messaging.HandlerFunc for the password reset queue.
func (h *Handler) Handle(ctx context.Context, body []byte) messaging.Decision {
	req, err := parseRequest(body)
	if err != nil {
		h.logger.Error().Err(err).Msg("invalid reset payload")
		return messaging.Discard
	}

	logger := h.logger.With().
		Str("request_id", req.RequestID).
		Str("to", req.To).
		Logger()

	var buf bytes.Buffer
	data := templateData{ResetLink: req.ResetLink, Year: h.now().Year()}
	if err := h.tmpl.Execute(&buf, data); err != nil {
		// Rendering is deterministic; a redelivery would fail the same way.
		logger.Error().Err(err).Msg("render reset email failed")
		return messaging.Discard
	}

	msg := mail.Message{To: req.To, Subject: subject, HTML: buf.String()}
	if err := h.mailer.Send(ctx, msg); err != nil {
		logger.Error().Err(err).Msg("send reset email failed")
		return messaging.Retry
	}

	logger.Info().Msg("reset email sent")
	return messaging.Accept
}

func parseRequest(body []byte) (Request, error) {
	var w wireRequest
	if err := json.Unmarshal(body, &w); err != nil {
		return Request{}, fmt.Errorf("decode reset payload: %w", err)
	}
	if err := validate.Struct(w); err != nil {
		return Request{}, fmt.Errorf("validate reset payload: %w", err)
	}
	return Request{RequestID: *w.RequestID, To: *w.To, ResetLink: *w.ResetLink}, nil
}
