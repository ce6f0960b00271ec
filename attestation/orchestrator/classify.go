package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trufnetwork/zkattest/attestation"
)

// CodePredicateNotSatisfied is the attestor error code for "the user does not
// meet the schema's requirements".
const CodePredicateNotSatisfied = 110001

// ErrUserAborted may be returned by a Launcher when the user dismisses the
// attestation prompt.
var ErrUserAborted = errors.New("user aborted attestation")

type attestorErrorBody struct {
	Code *float64 `json:"code"`
}

// ClassifyLaunchError maps a launcher failure to a rejection reason. Attestor
// errors carry a JSON object with a numeric code in their message; code
// 110001 means the predicate was evaluated and does not hold, which must not
// be confused with the attestor being unreachable.
func ClassifyLaunchError(err error) *attestation.Error {
	var aerr *attestation.Error
	if errors.As(err, &aerr) && aerr.Kind() == attestation.KindService {
		return aerr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrUserAborted) {
		return attestation.WrapError(attestation.ReasonUserCancelled, err, "attestation launch cancelled")
	}
	for _, msg := range []string{errors.Cause(err).Error(), err.Error()} {
		if code, ok := attestorErrorCode(msg); ok && code == CodePredicateNotSatisfied {
			return attestation.WrapError(attestation.ReasonPredicateNotSatisfied, err, "attestor reported predicate not satisfied")
		}
	}
	return attestation.WrapError(attestation.ReasonLaunchUnavailable, err, "attestor launch failed")
}

// attestorErrorCode extracts the numeric code of a single JSON error object.
// A quoted code is not a code; 110001.0 and 110001 are the same number.
func attestorErrorCode(msg string) (float64, bool) {
	var body attestorErrorBody
	dec := json.NewDecoder(bytes.NewReader([]byte(msg)))
	if err := dec.Decode(&body); err != nil || body.Code == nil {
		return 0, false
	}
	if dec.More() {
		return 0, false
	}
	return *body.Code, true
}

func classifyEnvironmentError(err error) *attestation.Error {
	var aerr *attestation.Error
	if errors.As(err, &aerr) && aerr.Kind() == attestation.KindEnvironment {
		return aerr
	}
	return attestation.WrapError(attestation.ReasonWalletUnavailable, err, "environment check failed")
}

// asAttestationError keeps typed pipeline errors and files anything else
// under fallback.
func asAttestationError(err error, fallback attestation.Reason) *attestation.Error {
	var aerr *attestation.Error
	if errors.As(err, &aerr) {
		return aerr
	}
	return attestation.WrapError(fallback, err, "")
}
