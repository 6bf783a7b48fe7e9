package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/maschat/masscoin-ledger/internal/api/middleware"
	"github.com/maschat/masscoin-ledger/internal/api/problem"
	"github.com/maschat/masscoin-ledger/internal/models"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

func requestActor(r *http.Request) (uuid.UUID, bool, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, false, errors.New("missing user in auth context")
	}

	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid user_id in auth context")
	}

	return actorID, middleware.UserRoleFromContext(r.Context()) == "admin", nil
}

// respondServiceError maps domain errors to problem responses. Anything
// unrecognized becomes a 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidWithdrawal),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrInsufficientStake),
		errors.Is(err, models.ErrSelfTipNotAllowed):
		RespondError(w, r, http.StatusBadRequest, "wallet/invalid-operation", err.Error())
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrWalletNotFound),
		errors.Is(err, models.ErrRequestNotFound),
		errors.Is(err, models.ErrTxNotFound),
		errors.Is(err, models.ErrContentNotFound):
		RespondError(w, r, http.StatusNotFound, "wallet/not-found", err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		RespondError(w, r, http.StatusForbidden, "wallet/forbidden", err.Error())
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrDuplicateRequest):
		RespondError(w, r, http.StatusConflict, "wallet/conflict", err.Error())
	case errors.Is(err, models.ErrRequestExpired):
		RespondError(w, r, http.StatusGone, "wallet/request-expired", err.Error())
	default:
		if status, problemType, message, ok := mapDBError(err); ok {
			RespondError(w, r, status, problemType, message)
			return
		}
		RespondError(w, r, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}
