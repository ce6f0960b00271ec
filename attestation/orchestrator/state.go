package orchestrator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trufnetwork/zkattest/attestation"
)

// Phase names a State for logs, metrics and observers.
type Phase string

const (
	PhaseIdle             Phase = "Idle"
	PhaseLaunched         Phase = "Launched"
	PhaseVerifying        Phase = "Verifying"
	PhaseVerified         Phase = "Verified"
	PhaseRejected         Phase = "Rejected"
	PhaseSubmitting       Phase = "Submitting"
	PhaseConfirmed        Phase = "Confirmed"
	PhaseSubmissionFailed Phase = "SubmissionFailed"
)

// Terminal reports whether an attempt ends in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseRejected || p == PhaseConfirmed || p == PhaseSubmissionFailed
}

// State is one step of a single attempt. Each concrete state only exposes the
// transitions that are legal from it, so for example a Submitting value can
// only be obtained from Verified.Encode.
type State interface {
	Phase() Phase
	state()
}

// Idle is the start of an attempt.
type Idle struct {
	SchemaID string
	Account  common.Address
}

// Launched means the attestor has been asked for a bundle.
type Launched struct {
	SchemaID string
	Account  common.Address
}

// Verifying holds a structurally valid bundle whose trust is not yet established.
type Verifying struct {
	SchemaID string
	Account  common.Address
	Bundle   *attestation.ResultBundle
}

// Verified holds a bundle that passed schema binding and both signatures.
type Verified struct {
	Account common.Address
	Bundle  *attestation.ResultBundle
}

// Submitting holds the payload handed to the chain collaborator.
type Submitting struct {
	Bundle  *attestation.ResultBundle
	Payload *attestation.AttestationCallPayload
}

// Rejected ends an attempt before submission.
type Rejected struct {
	Err *attestation.Error
}

// Confirmed ends an attempt with the transaction that committed the payload.
type Confirmed struct {
	TxID    string
	Payload *attestation.AttestationCallPayload
}

// SubmissionFailed ends an attempt whose verified payload the chain refused.
// TxID is set when the transaction was broadcast before the failure.
type SubmissionFailed struct {
	Payload *attestation.AttestationCallPayload
	TxID    string
	Err     error
}

func (Idle) Phase() Phase             { return PhaseIdle }
func (Launched) Phase() Phase         { return PhaseLaunched }
func (Verifying) Phase() Phase        { return PhaseVerifying }
func (Verified) Phase() Phase         { return PhaseVerified }
func (Submitting) Phase() Phase       { return PhaseSubmitting }
func (Rejected) Phase() Phase         { return PhaseRejected }
func (Confirmed) Phase() Phase        { return PhaseConfirmed }
func (SubmissionFailed) Phase() Phase { return PhaseSubmissionFailed }

func (Idle) state()             {}
func (Launched) state()         {}
func (Verifying) state()        {}
func (Verified) state()         {}
func (Submitting) state()       {}
func (Rejected) state()         {}
func (Confirmed) state()        {}
func (SubmissionFailed) state() {}

// Reason returns the rejection reason.
func (s Rejected) Reason() attestation.Reason {
	return s.Err.Reason
}

// Launch checks the environment and moves to Launched. A nil checker skips
// the preflight.
func (s Idle) Launch(ctx context.Context, env EnvironmentChecker) State {
	if env != nil {
		if err := env.CheckEnvironment(ctx); err != nil {
			return Rejected{Err: classifyEnvironmentError(err)}
		}
	}
	return Launched(s)
}

// Await suspends on the attestor and parses whatever it returns at the boundary.
func (s Launched) Await(ctx context.Context, l Launcher) State {
	raw, err := l.Launch(ctx, s.SchemaID, s.Account)
	if err != nil {
		return Rejected{Err: ClassifyLaunchError(err)}
	}
	bundle, err := attestation.ParseResultBundle(raw)
	if err != nil {
		return Rejected{Err: asAttestationError(err, attestation.ReasonMalformedBundle)}
	}
	return Verifying{SchemaID: s.SchemaID, Account: s.Account, Bundle: bundle}
}

// Verify binds the schema, checks the recipient, then checks signatures,
// stopping at the first failure.
func (s Verifying) Verify(v *attestation.SignatureVerifier) State {
	for _, check := range []func() error{
		func() error { return attestation.BindSchema(s.Bundle, s.SchemaID) },
		func() error { return attestation.CheckRecipient(s.Bundle, s.Account) },
		func() error { return v.Verify(s.Bundle) },
	} {
		if err := check(); err != nil {
			return Rejected{Err: asAttestationError(err, attestation.ReasonMalformedBundle)}
		}
	}
	return Verified{Account: s.Account, Bundle: s.Bundle}
}

// Encode builds the call payload for the verified bundle.
func (s Verified) Encode() Submitting {
	return Submitting{Bundle: s.Bundle, Payload: attestation.Encode(s.Bundle, s.Account)}
}

// Submit suspends on the chain collaborator.
func (s Submitting) Submit(ctx context.Context, sub Submitter) State {
	txID, err := sub.Submit(ctx, s.Payload)
	if err != nil {
		return SubmissionFailed{Payload: s.Payload, TxID: txID, Err: err}
	}
	return Confirmed{TxID: txID, Payload: s.Payload}
}
