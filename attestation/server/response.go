package server

import (
	"encoding/json"
	"net/http"

	"github.com/trufnetwork/zkattest/attestation"
)

type errorResponse struct {
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error"`
	State  string `json:"state,omitempty"`

	TxHash      string `json:"txHash,omitempty"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding error cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// rejectionStatus maps an attestation failure to an HTTP status: the caller's
// bundle or the attestor is at fault (422) unless the server's own wallet or
// network is (503).
func rejectionStatus(err *attestation.Error) int {
	if err.Kind() == attestation.KindEnvironment {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnprocessableEntity
}

func writeRejection(w http.ResponseWriter, state string, err *attestation.Error) {
	writeJSON(w, rejectionStatus(err), errorResponse{
		Kind:   err.Kind().String(),
		Reason: string(err.Reason),
		Error:  err.Error(),
		State:  state,
	})
}
