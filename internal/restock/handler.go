package restock

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/distribuidora-pyg/workers-go/internal/messaging"
)

// Applier applies a validated restock atomically.
type Applier interface {
	Apply(ctx context.Context, req Request) (ApplyResult, error)
}

// OutcomePublisher emits the terminal result for a request.
type OutcomePublisher interface {
	Publish(ctx context.Context, out messaging.Outcome) error
}

const (
	msgStockUpdated    = "stock updated successfully"
	msgProductNotFound = "product not found"
)

// Handler wires validation, the transactional apply and outcome publication
// for one restock delivery. All dependencies are injected; nothing here is
// process-global.
type Handler struct {
	repo   Applier
	pub    OutcomePublisher
	logger zerolog.Logger
}

func NewHandler(repo Applier, pub OutcomePublisher, logger zerolog.Logger) *Handler {
	return &Handler{repo: repo, pub: pub, logger: logger}
}

// Handle is the messaging.HandlerFunc for the restock queue.
func (h *Handler) Handle(ctx context.Context, body []byte) messaging.Decision {
	req, err := ParseRequest(body)
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			verr = &ValidationError{Reason: err.Error()}
		}
		h.logger.Error().
			Str("request_id", verr.RequestID).
			Str("reason", verr.Reason).
			Msg("invalid restock payload")
		h.publishError(ctx, verr.RequestID, verr.Reason)
		return messaging.Discard
	}

	logger := h.logger.With().
		Str("request_id", req.RequestID).
		Int64("producto_id", req.ProductID).
		Logger()

	res, err := h.repo.Apply(ctx, req)
	switch {
	case errors.Is(err, ErrProductNotFound):
		logger.Error().Msg("product not found")
		h.publishError(ctx, req.RequestID, msgProductNotFound)
		return messaging.Discard
	case err != nil:
		logger.Error().Err(err).Msg("restock failed")
		return messaging.Retry
	}

	if res.AlreadyApplied {
		logger.Info().Msg("request already applied, republishing outcome")
	} else {
		logger.Info().Int64("stock", res.NewStock).Msg("stock updated")
	}

	// The commit already happened; outcome delivery is best-effort and must
	// not push the message back onto the queue.
	out := messaging.Outcome{
		RequestID: req.RequestID,
		Status:    messaging.StatusSuccess,
		Message:   msgStockUpdated,
	}
	if err := h.pub.Publish(ctx, out); err != nil {
		logger.Warn().Err(err).Msg("publish outcome failed")
	}
	return messaging.Accept
}

func (h *Handler) publishError(ctx context.Context, requestID, msg string) {
	if requestID == "" {
		return
	}
	out := messaging.Outcome{
		RequestID: requestID,
		Status:    messaging.StatusError,
		Message:   msg,
	}
	if err := h.pub.Publish(ctx, out); err != nil {
		h.logger.Warn().Err(err).Str("request_id", requestID).Msg("publish outcome failed")
	}
}
