package payment

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/payment-service/internal/common"
)

// Handler exposes HTTP endpoints for payment intents.
type Handler struct {
	Provider  Provider
	Validator *Validator
	Logger    zerolog.Logger
}

// NewHandler wires a Handler with a fresh Validator.
func NewHandler(provider Provider, logger zerolog.Logger) *Handler {
	return &Handler{Provider: provider, Validator: NewValidator(), Logger: logger}
}

// CreateIntent handles POST /payment-intents.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	req, perr := h.Validator.CreateIntent(r.Body)
	if perr != nil {
		h.rejected(w, r, "create", perr)
		return
	}
	h.log(r).Info().
		Int64("amount", req.Amount).
		Str("currency", req.Currency).
		Msg("Creating payment intent")

	pi, err := h.Provider.CreateIntent(r.Context(), req)
	h.respond(w, r, "create", http.StatusCreated, pi, err)
}

// GetIntent handles GET /payment-intents/{paymentIntentId}.
func (h *Handler) GetIntent(w http.ResponseWriter, r *http.Request) {
	id, perr := h.Validator.IntentID(chi.URLParam(r, "paymentIntentId"))
	if perr != nil {
		h.rejected(w, r, "retrieve", perr)
		return
	}
	h.log(r).Info().Str("payment_intent_id", id).Msg("Retrieving payment intent")

	pi, err := h.Provider.RetrieveIntent(r.Context(), id)
	h.respond(w, r, "retrieve", http.StatusOK, pi, err)
}

// ConfirmIntent handles POST /payment-intents/{paymentIntentId}/confirm.
func (h *Handler) ConfirmIntent(w http.ResponseWriter, r *http.Request) {
	id, methodID, perr := h.Validator.ConfirmIntent(chi.URLParam(r, "paymentIntentId"), r.Body)
	if perr != nil {
		h.rejected(w, r, "confirm", perr)
		return
	}
	h.log(r).Info().
		Str("payment_intent_id", id).
		Str("payment_method_id", methodID).
		Msg("Confirming payment intent")

	pi, err := h.Provider.ConfirmIntent(r.Context(), id, methodID)
	h.respond(w, r, "confirm", http.StatusOK, pi, err)
}

// CancelIntent handles POST /payment-intents/{paymentIntentId}/cancel.
func (h *Handler) CancelIntent(w http.ResponseWriter, r *http.Request) {
	id, perr := h.Validator.IntentID(chi.URLParam(r, "paymentIntentId"))
	if perr != nil {
		h.rejected(w, r, "cancel", perr)
		return
	}
	h.log(r).Info().Str("payment_intent_id", id).Msg("Cancelling payment intent")

	pi, err := h.Provider.CancelIntent(r.Context(), id)
	h.respond(w, r, "cancel", http.StatusOK, pi, err)
}

func (h *Handler) rejected(w http.ResponseWriter, r *http.Request, operation string, perr *PaymentError) {
	h.log(r).Warn().
		Str("operation", operation).
		Str("error", perr.Message).
		Msg("validation failed")
	common.JSONError(w, perr.Body())
}

// respond maps a provider outcome to the envelope. Errors that are not
// *PaymentError never reach the client verbatim.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, operation string, status int, pi PaymentIntent, err error) {
	if err == nil {
		common.JSON(w, status, common.Success(pi))
		return
	}
	var perr *PaymentError
	if errors.As(err, &perr) {
		common.JSONError(w, perr.Body())
		return
	}
	h.log(r).Error().Err(err).Str("operation", operation).Msg("unexpected provider error")
	common.InternalError(w)
}

func (h *Handler) log(r *http.Request) *zerolog.Logger {
	return requestLogger(r, &h.Logger)
}

// requestLogger prefers the request-scoped logger installed by obs.RequestLogger.
func requestLogger(r *http.Request, fallback *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return fallback
}

// Register mounts the payment routes on r.
func Register(r chi.Router, h *Handler, wh *Webhook) {
	r.Post("/payment-intents", h.CreateIntent)
	r.Route("/payment-intents/{paymentIntentId}", func(pi chi.Router) {
		pi.Get("/", h.GetIntent)
		pi.Post("/confirm", h.ConfirmIntent)
		pi.Post("/cancel", h.CancelIntent)
	})
	r.Post("/webhooks", wh.Handle)
}
