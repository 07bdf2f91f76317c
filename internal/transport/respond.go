package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tallgren/gatecheck/internal/domain/answers"
	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/domain/raci"
	"github.com/tallgren/gatecheck/internal/domain/scoring"
	"github.com/tallgren/gatecheck/internal/host"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrVersionNotFound),
		errors.Is(err, catalog.ErrQuestionNotFound),
		errors.Is(err, catalog.ErrDeliverableNotFound),
		errors.Is(err, catalog.ErrRoleNotFound),
		errors.Is(err, answers.ErrQuestionNotFound),
		errors.Is(err, raci.ErrAssignmentNotFound),
		errors.Is(err, host.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, catalog.ErrDuplicateQuestion),
		errors.Is(err, scoring.ErrInvalidWeight),
		errors.Is(err, scoring.ErrOverlappingWeights),
		errors.Is(err, answers.ErrEntryOutOfRange),
		errors.Is(err, raci.ErrUnknownDuty):
		return http.StatusBadRequest
	case errors.Is(err, answers.ErrNoVersion):
		return http.StatusConflict
	case errors.Is(err, answers.ErrSaveFailed),
		errors.Is(err, raci.ErrSaveFailed),
		errors.Is(err, host.ErrSaveRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
