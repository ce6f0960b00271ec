package attestortest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// LaunchPath is the gateway route the launcher client posts to.
const LaunchPath = "/v1/tasks/launch"

// LaunchRequest is the gateway request body.
type LaunchRequest struct {
	AppID    string `json:"appId"`
	SchemaID string `json:"schemaId"`
	Account  string `json:"account"`
}

// Handler serves the attestor gateway: POST /v1/tasks/launch returns a signed
// bundle, or a 422 carrying the attestor error code when the schema is denied.
func (a *Attestor) Handler(logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("attestor")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post(LaunchPath, func(w http.ResponseWriter, req *http.Request) {
		var body LaunchRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, &PredicateError{Code: 400, Message: "invalid request body"})
			return
		}
		if body.SchemaID == "" || !common.IsHexAddress(body.Account) {
			writeError(w, http.StatusBadRequest, &PredicateError{Code: 400, Message: "schemaId and account are required"})
			return
		}

		bundle, err := a.Issue(body.SchemaID, common.HexToAddress(body.Account))
		var perr *PredicateError
		switch {
		case errors.As(err, &perr):
			logger.Info("predicate not satisfied", zap.String("schema_id", body.SchemaID), zap.String("account", body.Account))
			writeError(w, http.StatusUnprocessableEntity, perr)
			return
		case err != nil:
			logger.Error("issue bundle", zap.Error(err))
			writeError(w, http.StatusInternalServerError, &PredicateError{Code: 500, Message: err.Error()})
			return
		}

		logger.Info("bundle issued",
			zap.String("schema_id", body.SchemaID),
			zap.String("task_id", bundle.TaskID),
			zap.String("account", body.Account))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bundle)
	})
	return r
}

func writeError(w http.ResponseWriter, status int, body *PredicateError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
