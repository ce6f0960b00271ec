package attestation

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind groups failures by how the caller should react to them.
type Kind uint8

const (
	// KindStructural marks malformed bundle fields. No cryptographic work is
	// attempted on structurally invalid input.
	KindStructural Kind = iota + 1
	// KindTrust marks a well-formed bundle that must not be trusted.
	KindTrust
	// KindEnvironment marks a failed precondition of the whole flow (network, wallet).
	KindEnvironment
	// KindService marks attestor failures, including "predicate not satisfied".
	KindService
	// KindSubmission marks a chain rejection after verification succeeded.
	KindSubmission
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindTrust:
		return "trust"
	case KindEnvironment:
		return "environment"
	case KindService:
		return "service"
	case KindSubmission:
		return "submission"
	default:
		return "unknown"
	}
}

// Reason is the user-visible cause of a rejected attempt.
type Reason string

const (
	ReasonSchemaMismatch        Reason = "SchemaMismatch"
	ReasonUntrustedAllocator    Reason = "UntrustedAllocator"
	ReasonValidatorMismatch     Reason = "ValidatorMismatch"
	ReasonMalformedSignature    Reason = "MalformedSignature"
	ReasonMalformedBundle       Reason = "MalformedBundle"
	ReasonRecipientMismatch     Reason = "RecipientMismatch"
	ReasonPredicateNotSatisfied Reason = "PredicateNotSatisfied"
	ReasonLaunchUnavailable     Reason = "LaunchUnavailable"
	ReasonUserCancelled         Reason = "UserCancelled"
	ReasonWrongNetwork          Reason = "WrongNetwork"
	ReasonWalletUnavailable     Reason = "WalletUnavailable"
	ReasonSubmissionFailed      Reason = "SubmissionFailed"
)

// Kind reports the error family a reason belongs to.
func (r Reason) Kind() Kind {
	switch r {
	case ReasonMalformedSignature, ReasonMalformedBundle:
		return KindStructural
	case ReasonSchemaMismatch, ReasonUntrustedAllocator, ReasonValidatorMismatch, ReasonRecipientMismatch:
		return KindTrust
	case ReasonWrongNetwork, ReasonWalletUnavailable:
		return KindEnvironment
	case ReasonPredicateNotSatisfied, ReasonLaunchUnavailable, ReasonUserCancelled:
		return KindService
	case ReasonSubmissionFailed:
		return KindSubmission
	default:
		return 0
	}
}

// Sentinels for errors.Is matching. An *Error matches the sentinel of its reason.
var (
	ErrSchemaMismatch        = &Error{Reason: ReasonSchemaMismatch}
	ErrUntrustedAllocator    = &Error{Reason: ReasonUntrustedAllocator}
	ErrValidatorMismatch     = &Error{Reason: ReasonValidatorMismatch}
	ErrMalformedSignature    = &Error{Reason: ReasonMalformedSignature}
	ErrMalformedBundle       = &Error{Reason: ReasonMalformedBundle}
	ErrRecipientMismatch     = &Error{Reason: ReasonRecipientMismatch}
	ErrPredicateNotSatisfied = &Error{Reason: ReasonPredicateNotSatisfied}
	ErrLaunchUnavailable     = &Error{Reason: ReasonLaunchUnavailable}
	ErrUserCancelled         = &Error{Reason: ReasonUserCancelled}
	ErrWrongNetwork          = &Error{Reason: ReasonWrongNetwork}
	ErrWalletUnavailable     = &Error{Reason: ReasonWalletUnavailable}
	ErrSubmissionFailed      = &Error{Reason: ReasonSubmissionFailed}
)

// Error is the typed failure returned by every stage of the pipeline.
type Error struct {
	Reason Reason
	Detail string
	cause  error
}

// NewError builds an *Error for reason with a formatted detail message.
func NewError(reason Reason, format string, args ...any) *Error {
	return &Error{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error for reason around an underlying cause.
func WrapError(reason Reason, cause error, detail string) *Error {
	return &Error{Reason: reason, Detail: detail, cause: cause}
}

// Kind returns the error family.
func (e *Error) Kind() Kind {
	return e.Reason.Kind()
}

func (e *Error) Error() string {
	msg := string(e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same reason, so the package sentinels work
// with errors.Is regardless of detail or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// ReasonOf extracts the reason of the first *Error in err's chain.
func ReasonOf(err error) (Reason, bool) {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Reason, true
	}
	return "", false
}
