// Package restock implements the inventory restock worker: payload
// validation, the locked read-modify-write transaction against productos,
// the append-only inventario_historial ledger and outcome publication.
package restock

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

// Request is a validated restock order consumed from the inbound queue.
type Request struct {
	RequestID string
	ProductID int64
	Quantity  int64
}

// wireRequest mirrors the inbound JSON. Pointer fields distinguish absent or
// null values from zero values.
type wireRequest struct {
	RequestID *string `json:"requestId" validate:"required"`
	ProductID *int64  `json:"productoId" validate:"required"`
	Quantity  *int64  `json:"cantidad" validate:"required,gt=0"`
}

// ValidationError is terminal: no amount of redelivery makes the payload
// valid, so the message is discarded without retry.
type ValidationError struct {
	RequestID string
	Reason    string
}

func (e *ValidationError) Error() string { return e.Reason }

const (
	reasonMissingFields   = "missing required fields"
	reasonInvalidQuantity = "quantity must be a positive number"
)

var validate = validator.New()

// ParseRequest decodes and validates an inbound restock payload. On failure
// it still reports the requestId when one could be read, so the error can be
// logged and published against the originating request.
func ParseRequest(body []byte) (Request, error) {
	var w wireRequest
	if err := json.Unmarshal(body, &w); err != nil {
		reason := reasonMissingFields
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "cantidad" {
			reason = reasonInvalidQuantity
		}
		return Request{}, &ValidationError{RequestID: probeRequestID(body), Reason: reason}
	}

	if err := validate.Struct(w); err != nil {
		verr := &ValidationError{Reason: reasonMissingFields}
		if w.RequestID != nil {
			verr.RequestID = *w.RequestID
		}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.Field() == "Quantity" && fe.Tag() == "gt" {
					verr.Reason = reasonInvalidQuantity
				}
			}
		}
		return Request{}, verr
	}

	return Request{
		RequestID: *w.RequestID,
		ProductID: *w.ProductID,
		Quantity:  *w.Quantity,
	}, nil
}

// probeRequestID makes a second, lenient pass over a payload that failed to
// decode, salvaging the requestId for the error log and outcome.
func probeRequestID(body []byte) string {
	var probe struct {
		RequestID string `json:"requestId"`
	}
	_ = json.Unmarshal(body, &probe)
	return probe.RequestID
}
