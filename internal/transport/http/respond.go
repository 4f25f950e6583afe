package httptransport

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"proofing/internal/docauth"
	"proofing/internal/throttle"
	"proofing/pkg/domainerrors"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError translates domain errors into the JSON error envelope.
func respondError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeOf(err)
	respondJSON(w, httpStatus(code), map[string]string{
		"error": string(code),
	})
}

func httpStatus(code domainerrors.Code) int {
	switch code {
	case domainerrors.CodeNotFound:
		return http.StatusNotFound
	case domainerrors.CodeBadRequest:
		return http.StatusBadRequest
	case domainerrors.CodeConflict:
		return http.StatusConflict
	case domainerrors.CodeThrottled:
		return http.StatusTooManyRequests
	case domainerrors.CodePreconditionNotMet:
		return http.StatusSeeOther
	case domainerrors.CodeFraudBlocked:
		return http.StatusForbidden
	case domainerrors.CodeAsyncExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// respondThrottled renders the 429 page with the window remainder.
func respondThrottled(w http.ResponseWriter, st throttle.Status) {
	seconds := int(math.Ceil(st.RetryAfter.Seconds()))
	if seconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	respondJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "throttled",
		"retry_after": seconds,
	})
}

// respondFieldErrors renders normalized vendor errors inline.
func respondFieldErrors(w http.ResponseWriter, fieldErrors map[docauth.Field][]string) {
	respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":        "verification_failed",
		"field_errors": fieldErrors,
	})
}

// respondValidation renders request-shape violations per field.
func respondValidation(w http.ResponseWriter, err error) {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  "invalid_request",
		"fields": fields,
	})
}

// redirectToStep is the universal "not your step" answer: a 303 to where the
// session actually is, never an error body.
func redirectToStep(w http.ResponseWriter, r *http.Request, step string) {
	http.Redirect(w, r, "/verify/"+step, http.StatusSeeOther)
}
