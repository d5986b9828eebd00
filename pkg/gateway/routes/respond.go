package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/farms"
	"github.com/agri-advisor/platform/pkg/gateway/httpclient"
	"github.com/agri-advisor/platform/pkg/identity"
	"github.com/agri-advisor/platform/pkg/recommend"
	"github.com/agri-advisor/platform/pkg/serving"
	"github.com/agri-advisor/platform/pkg/validation"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, models.ErrorResponse{Code: code, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid payload")
		return false
	}
	return true
}

// writeError maps domain errors to a status and an ErrorResponse body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	entry := logger.FromContext(r.Context()).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	respondJSON(w, status, body)
}

func classify(err error) (int, models.ErrorResponse) {
	var verrs *validation.Errors
	if errors.As(err, &verrs) && !recommend.IsConfiguration(err) && !recommend.IsComputation(err) {
		body := models.ErrorResponse{Code: "input_validation", Message: verrs.Error(), Details: verrs.Fields}
		if pe, ok := recommend.AsError(err); ok {
			body.Stage = pe.Stage
		}
		return http.StatusBadRequest, body
	}

	if pe, ok := recommend.AsError(err); ok {
		body := models.ErrorResponse{Code: pe.Kind.String(), Message: pe.Err.Error(), Stage: pe.Stage}
		switch pe.Kind {
		case recommend.KindInputValidation:
			return http.StatusBadRequest, body
		case recommend.KindComputation:
			return http.StatusUnprocessableEntity, body
		default:
			body.Message = "model artifacts are inconsistent"
			return http.StatusInternalServerError, body
		}
	}

	var upstream *serving.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return http.StatusBadGateway, models.ErrorResponse{Code: "upstream_unavailable", Message: upstream.Provider + " is unavailable"}
	case httpclient.IsUnavailable(err):
		return http.StatusBadGateway, models.ErrorResponse{Code: "upstream_unavailable", Message: "upstream service is unavailable"}
	case errors.Is(err, farms.ErrFarmNotFound):
		return http.StatusNotFound, models.ErrorResponse{Code: "not_found", Message: "farm not found"}
	case errors.Is(err, serving.ErrSoilDataMissing):
		return http.StatusNotFound, models.ErrorResponse{Code: "soil_data_missing", Message: "soil data not found for this farm; cannot generate recommendation"}
	case errors.Is(err, farms.ErrForbidden), errors.Is(err, serving.ErrForbidden):
		return http.StatusForbidden, models.ErrorResponse{Code: "forbidden", Message: "not authorized to access this resource"}
	case errors.Is(err, identity.ErrEmailAlreadyExists):
		return http.StatusConflict, models.ErrorResponse{Code: "email_taken", Message: err.Error()}
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, models.ErrorResponse{Code: "invalid_credentials", Message: "invalid credentials"}
	case errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound, models.ErrorResponse{Code: "not_found", Message: "user not found"}
	}
	return http.StatusInternalServerError, models.ErrorResponse{Code: "internal", Message: "internal error"}
}
