package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

// Middleware is the shape of auth.Verifier.Authenticate.
type Middleware = func(http.Handler) http.Handler

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

// respondWithError отправляет JSON ошибку
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	var productErr *order.ProductError
	switch {
	case errors.As(err, &productErr):
		// An order naming a missing or short product is a bad cart, not a missing resource.
		return http.StatusBadRequest

	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, inventory.ErrVendorNotFound),
		errors.Is(err, inventory.ErrRestockNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, user.ErrEmailExists),
		errors.Is(err, order.ErrPaymentReused):
		return http.StatusConflict

	case errors.Is(err, payment.ErrInvalidSignature),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized

	case errors.Is(err, payment.ErrGatewayUnavailable):
		return http.StatusBadGateway

	case errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, catalog.ErrInvalidRating),
		errors.Is(err, catalog.ErrAlreadyReviewed),
		errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidItem),
		errors.Is(err, order.ErrInvalidOrder),
		errors.Is(err, order.ErrOrderNotPaid),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrStockUnderflow),
		errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrMissingFields),
		errors.Is(err, payment.ErrIntentMismatch),
		errors.Is(err, user.ErrEmptyPassword),
		errors.Is(err, user.ErrCannotDeleteAdmin):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError logs err and answers with its status. Server errors get a
// generic message: wrapped errors carry SQL and driver details.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	code := mapErrorToStatusCode(err)

	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msgf("Failed to %s via service", action)
		message := "Internal server error"
		if code == http.StatusBadGateway {
			message = payment.ErrGatewayUnavailable.Error()
		}
		respondWithError(w, code, message)
		return
	}

	log.Warn().Err(err).Str("path", r.URL.Path).Int("status", code).Msgf("Failed to %s", action)
	respondWithError(w, code, err.Error())
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}

		switch fe.Tag() {
		case "required":
			details[field] = "is required"
		case "email":
			details[field] = "must be a valid email address"
		case "url":
			details[field] = "must be a valid URL"
		case "min", "gte":
			details[field] = fmt.Sprintf("must be at least %s", fe.Param())
		case "max", "lte":
			details[field] = fmt.Sprintf("must be at most %s", fe.Param())
		case "gt":
			details[field] = fmt.Sprintf("must be greater than %s", fe.Param())
		case "oneof":
			details[field] = fmt.Sprintf("must be one of: %s", fe.Param())
		default:
			details[field] = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		}
	}
	return details
}

// decodeAndValidate reads a JSON body into dst and runs the validator over it.
// It writes the 400 response itself and reports false when the request is rejected.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}

	return true
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.FromString(raw)
	if err != nil || id == uuid.Nil {
		log.Warn().Err(err).Str(name, raw).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s parameter", name))
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUID reads an optional query parameter; empty yields uuid.Nil.
func parseOptionalUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s parameter", name))
		return uuid.Nil, false
	}
	return id, true
}

func identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id := auth.FromContext(r.Context())
	if id == nil {
		respondWithError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return nil, false
	}
	return id, true
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
