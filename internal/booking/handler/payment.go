package handler

import (
	"net/http"

	"cinebook/internal/booking/service"
	"cinebook/internal/booking/validator"
	httputil "cinebook/pkg/http"
	"cinebook/pkg/logger"
	"cinebook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

const StripeSignatureHeader = "Stripe-Signature"

type PaymentHandler struct {
	settlement service.SettlementService
	validator  *validator.BookingValidator
	log        *logger.Logger
}

func NewPaymentHandler(settlement service.SettlementService, validator *validator.BookingValidator, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		settlement: settlement,
		validator:  validator,
		log:        log,
	}
}

func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var dto validator.ConfirmPaymentDTO
	if err := httputil.DecodeJSON(r, &dto); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.validator.ValidateConfirm(&dto); err != nil {
		httputil.WriteError(w, validationError(err))
		return
	}

	booking, err := h.settlement.ConfirmSession(r.Context(), identity, dto.SessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

// Webhook expects middleware.WebhookRawBody in front of it. It answers 200
// once the event is verified and queued, including events that are ignored.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	payload := middleware.RawBody(r.Context())
	signature := r.Header.Get(StripeSignatureHeader)

	if err := h.settlement.HandleWebhook(r.Context(), payload, signature); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/payment/confirm", h.Confirm)
}

// RegisterWebhook mounts the provider callback on its own router so it can run
// behind a chain without JSON body parsing.
func (h *PaymentHandler) RegisterWebhook(router *httprouter.Router) {
	router.POST("/payment/webhook", h.Webhook)
}

func (h *PaymentHandler) SignatureHeader() string {
	return StripeSignatureHeader
}
