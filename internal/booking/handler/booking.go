package handler

import (
	"errors"
	"net/http"

	"cinebook/internal/booking/service"
	"cinebook/internal/booking/validator"
	apperrors "cinebook/pkg/errors"
	httputil "cinebook/pkg/http"
	"cinebook/pkg/logger"
	"cinebook/pkg/middleware"
	"cinebook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	reservation  service.ReservationService
	query        service.QueryService
	cancellation service.CancellationService
	validator    *validator.BookingValidator
	log          *logger.Logger
}

func NewBookingHandler(
	reservation service.ReservationService,
	query service.QueryService,
	cancellation service.CancellationService,
	validator *validator.BookingValidator,
	log *logger.Logger,
) *BookingHandler {
	return &BookingHandler{
		reservation:  reservation,
		query:        query,
		cancellation: cancellation,
		validator:    validator,
		log:          log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var dto validator.CreateBookingDTO
	if err := httputil.DecodeJSON(r, &dto); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.validator.ValidateCreate(&dto); err != nil {
		httputil.WriteError(w, validationError(err))
		return
	}

	result, err := h.reservation.CreateBooking(r.Context(), identity, service.CreateBookingRequest{
		ShowID: dto.ShowID,
		Seats:  dto.SelectedSeats,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, result)
}

func (h *BookingHandler) Seats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snapshot, err := h.query.SeatSnapshot(r.Context(), ps.ByName("showId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, snapshot)
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	bookings, total, err := h.query.ListMyBookings(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, bookings, int(total), limit, offset)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	booking, err := h.query.GetBooking(r.Context(), identity, ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	booking, err := h.cancellation.CancelBooking(r.Context(), identity, ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/booking/create", h.Create)
	router.GET("/booking/seats/:showId", h.Seats)
	router.GET("/booking/my", h.ListMine)
	router.GET("/booking/id/:id", h.GetByID)
	router.POST("/booking/id/:id/cancel", h.Cancel)
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok || identity.UserID == "" {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return model.Identity{}, false
	}
	return identity, true
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.AppError()
	}
	return apperrors.InvalidInput(err.Error())
}
