package validator

import (
	"errors"
	"fmt"
	"strings"

	"cinebook/internal/booking/seatmap"
	apperrors "cinebook/pkg/errors"
	"cinebook/pkg/logger"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// AppError converts the collected field errors into a VALIDATION_ERROR whose
// details map every field to its message.
func (v ValidationErrors) AppError() *apperrors.AppError {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	msg := "Invalid request"
	if len(v) > 0 {
		msg = v[0].Message
	}
	return apperrors.Validation(msg, details)
}

type CreateBookingDTO struct {
	ShowID        string   `json:"showId" validate:"required,mongodb"`
	SelectedSeats []string `json:"selectedSeats" validate:"required,min=1,dive,seat_id"`
}

type ConfirmPaymentDTO struct {
	SessionID string `json:"sessionId" validate:"required,max=255"`
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("seat_id", validateSeatID); err != nil {
		log.Fatal("Failed to register 'seat_id' validator",
			"error", err,
		)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

// validateSeatID accepts any casing and surrounding blanks; the service
// normalizes seat ids before use.
func validateSeatID(fl validator.FieldLevel) bool {
	_, err := seatmap.CanonicalSeatID(fl.Field().String())
	return err == nil
}

func (v *BookingValidator) ValidateCreate(dto *CreateBookingDTO) error {
	return v.validateStruct(dto)
}

func (v *BookingValidator) ValidateConfirm(dto *ConfirmPaymentDTO) error {
	return v.validateStruct(dto)
}

func (v *BookingValidator) validateStruct(dto any) error {
	if err := v.validate.Struct(dto); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			if err.Field() == "SelectedSeats" {
				message = "No seats selected"
			} else {
				message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
			}
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "seat_id":
			message = fmt.Sprintf("%q is not a valid seat id", err.Value())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
