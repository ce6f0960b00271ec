package orchestrator

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/trufnetwork/zkattest/attestation"
	"github.com/trufnetwork/zkattest/attestation/internal/tracing"
	"github.com/trufnetwork/zkattest/attestation/metrics"
)

// Launcher asks the attestor to evaluate schemaID for account and returns the
// raw result bundle.
type Launcher interface {
	Launch(ctx context.Context, schemaID string, account common.Address) ([]byte, error)
}

// Submitter commits a verified payload on chain and returns the transaction id.
// A transaction that was broadcast but not confirmed is reported with both its
// id and an error.
type Submitter interface {
	Submit(ctx context.Context, payload *attestation.AttestationCallPayload) (string, error)
}

// EnvironmentChecker verifies flow preconditions (wallet present, right
// network) before anything is launched.
type EnvironmentChecker interface {
	CheckEnvironment(ctx context.Context) error
}

// Observer is called with every state an attempt enters, in order.
type Observer func(attempt Attempt, state State)

// Attempt identifies one verify-then-submit cycle.
type Attempt struct {
	SchemaID string
	Account  common.Address
}

// Outcome is the terminal result of an attempt.
type Outcome struct {
	Attempt Attempt
	Final   State
	History []Phase

	// ExplorerURL links the attempt's transaction when an explorer base is
	// configured.
	ExplorerURL string
}

// TxID returns the transaction id of a confirmed attempt, or of a failed
// submission that reached the network.
func (o Outcome) TxID() string {
	switch s := o.Final.(type) {
	case Confirmed:
		return s.TxID
	case SubmissionFailed:
		return s.TxID
	}
	return ""
}

// Err returns the failure of a rejected or failed attempt.
func (o Outcome) Err() error {
	switch s := o.Final.(type) {
	case Rejected:
		return s.Err
	case SubmissionFailed:
		return s.Err
	}
	return nil
}

// Reason returns the rejection reason, if any. Submission failures report
// ReasonSubmissionFailed.
func (o Outcome) Reason() attestation.Reason {
	switch s := o.Final.(type) {
	case Rejected:
		return s.Reason()
	case SubmissionFailed:
		return attestation.ReasonSubmissionFailed
	}
	return ""
}

// Orchestrator runs attempts. It keeps no per-attempt state, so one value can
// serve concurrent attempts.
type Orchestrator struct {
	launcher  Launcher
	submitter Submitter
	env       EnvironmentChecker
	verifier  *attestation.SignatureVerifier

	logger   *zap.Logger
	metrics  metrics.MetricsRecorder
	observer Observer
	explorer string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEnvironmentChecker enables the preflight check.
func WithEnvironmentChecker(env EnvironmentChecker) Option {
	return func(o *Orchestrator) { o.env = env }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger.Named("orchestrator") }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.MetricsRecorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithObserver registers a state observer.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithExplorer sets the block explorer transaction prefix used for
// Outcome.ExplorerURL.
func WithExplorer(base string) Option {
	return func(o *Orchestrator) { o.explorer = base }
}

// New creates an orchestrator.
func New(launcher Launcher, submitter Submitter, verifier *attestation.SignatureVerifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		launcher:  launcher,
		submitter: submitter,
		verifier:  verifier,
		logger:    zap.NewNop(),
		metrics:   metrics.NewNoOpMetrics(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives a fresh state machine for a to a terminal state. Nothing is
// retried; a new attempt needs a new Run.
func (o *Orchestrator) Run(ctx context.Context, a Attempt) (out Outcome) {
	out.Attempt = a
	started := time.Now()
	logger := o.logger.With(zap.String("schema_id", a.SchemaID), zap.String("account", a.Account.Hex()))

	ctx, finish := tracing.AttemptOperation(ctx, tracing.OpAttempt, a.SchemaID, a.Account.Hex())
	defer func() {
		finish(out.Err())
		reason := string(out.Reason())
		if f, ok := out.Final.(SubmissionFailed); ok {
			reason = metrics.ClassifyError(f.Err)
		}
		o.metrics.RecordAttemptFinished(ctx, a.SchemaID, string(out.Final.Phase()), reason, time.Since(started))
	}()
	o.metrics.RecordAttemptStarted(ctx, a.SchemaID)

	var state State = Idle{SchemaID: a.SchemaID, Account: a.Account}
	out.History = append(out.History, state.Phase())
	o.notify(a, state)

	for !state.Phase().Terminal() {
		state = o.step(ctx, a, state)
		out.History = append(out.History, state.Phase())
		o.notify(a, state)
		logger.Debug("attempt state", zap.String("state", string(state.Phase())))
	}
	out.Final = state

	if txID := out.TxID(); txID != "" && o.explorer != "" {
		out.ExplorerURL = o.explorer + txID
	}
	switch s := state.(type) {
	case Confirmed:
		logger.Info("attestation committed", zap.String("tx_hash", s.TxID))
	case Rejected:
		logger.Warn("attestation rejected",
			zap.String("reason", string(s.Reason())),
			zap.String("kind", s.Err.Kind().String()),
			zap.Error(s.Err))
	case SubmissionFailed:
		logger.Error("attestation submission failed",
			zap.String("tx_hash", s.TxID),
			zap.String("cause", metrics.ClassifyError(s.Err)),
			zap.Error(s.Err))
	}
	return out
}

func (o *Orchestrator) step(ctx context.Context, a Attempt, state State) State {
	switch s := state.(type) {
	case Idle:
		if o.env == nil {
			return s.Launch(ctx, nil)
		}
		ctx, finish := tracing.TraceOp(ctx, string(tracing.OpPreflight))
		next := s.Launch(ctx, o.env)
		finish(rejection(next))
		return next

	case Launched:
		ctx, finish := tracing.TraceOp(ctx, string(tracing.OpLaunch))
		began := time.Now()
		next := s.Await(ctx, o.launcher)
		o.metrics.RecordLaunchDuration(ctx, a.SchemaID, time.Since(began))
		finish(rejection(next))
		return next

	case Verifying:
		_, finish := tracing.TraceOp(ctx, string(tracing.OpVerify),
			attribute.String("task_id", s.Bundle.TaskID),
			attribute.String("validator", s.Bundle.ValidatorAddress.Hex()))
		next := s.Verify(o.verifier)
		if r, ok := next.(Rejected); ok {
			o.metrics.RecordVerificationFailure(ctx, a.SchemaID, string(r.Reason()))
		}
		finish(rejection(next))
		return next

	case Verified:
		return s.Encode()

	case Submitting:
		ctx, finish := tracing.TraceOp(ctx, string(tracing.OpSubmit),
			attribute.String("task_id", s.Bundle.TaskID))
		began := time.Now()
		next := s.Submit(ctx, o.submitter)
		o.metrics.RecordSubmitDuration(ctx, a.SchemaID, time.Since(began))
		if f, ok := next.(SubmissionFailed); ok {
			finish(f.Err)
		} else {
			finish(nil)
		}
		return next
	}

	// Only terminal states reach here and the loop never steps them.
	return state
}

func (o *Orchestrator) notify(a Attempt, s State) {
	if o.observer != nil {
		o.observer(a, s)
	}
}

func rejection(s State) error {
	if r, ok := s.(Rejected); ok {
		return r.Err
	}
	return nil
}

// RunAll runs independent attempts concurrently, at most limit at a time
// (limit <= 0 means unbounded). Outcomes are returned in input order. Attempts
// share nothing but the read-only verifier, so one failing attempt does not
// affect the others.
func (o *Orchestrator) RunAll(ctx context.Context, attempts []Attempt, limit int) []Outcome {
	outcomes := make([]Outcome, len(attempts))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, a := range attempts {
		g.Go(func() error {
			outcomes[i] = o.Run(gctx, a)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// VerifyOnly runs the verification half of an attempt against l and returns
// Verified or Rejected. Nothing is submitted and no environment check runs.
func VerifyOnly(ctx context.Context, l Launcher, v *attestation.SignatureVerifier, a Attempt) State {
	state := Launched(a).Await(ctx, l)
	if s, ok := state.(Verifying); ok {
		return s.Verify(v)
	}
	return state
}
