package auth

import (
	"context"

	"github.com/samber/oops"

	"github.com/natours-api/go-auth/middleware/jwtware"
)

const textCodeInvalidTransition = "INVALID_PIPELINE_TRANSITION"

// PipelineState is a step of the access control pipeline.
type PipelineState string

const (
	StateAnonymous      PipelineState = "anonymous"
	StateAuthenticating PipelineState = "authenticating"
	StateAuthenticated  PipelineState = "authenticated"
	StateAuthorized     PipelineState = "authorized"
	StateDispatched     PipelineState = "dispatched"
	StateRejected       PipelineState = "rejected"
)

// ErrInvalidTransition is returned when the pipeline attempts an illegal step.
var ErrInvalidTransition = oops.Code(textCodeInvalidTransition).Errorf("invalid access pipeline transition")

// PipelineRun is the trail of a single request through the pipeline.
type PipelineRun struct {
	States   []PipelineState
	Identity Identity
	Reason   error
}

// State returns the last state reached.
func (r *PipelineRun) State() PipelineState {
	if r == nil || len(r.States) == 0 {
		return StateAnonymous
	}
	return r.States[len(r.States)-1]
}

// Rejected reports whether the run ended in StateRejected.
func (r *PipelineRun) Rejected() bool {
	return r.State() == StateRejected
}

// DispatchFunc hands an authorized request to the protected operation.
type DispatchFunc func(ctx context.Context, identity Identity) error

// PipelineHook observes every transition.
type PipelineHook func(ctx context.Context, from, to PipelineState, run *PipelineRun)

// PipelineOption customizes the access pipeline.
type PipelineOption func(*AccessPipeline)

// WithPipelineHook registers a transition observer.
func WithPipelineHook(h PipelineHook) PipelineOption {
	return func(p *AccessPipeline) {
		if h != nil {
			p.hooks = append(p.hooks, h)
		}
	}
}

// WithPipelineLogger overrides the logger.
func WithPipelineLogger(logger Logger) PipelineOption {
	return func(p *AccessPipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPipelineActivitySink publishes rejected runs as access denied events.
func WithPipelineActivitySink(sink ActivitySink) PipelineOption {
	return func(p *AccessPipeline) {
		p.activitySink = normalizeActivitySink(sink)
	}
}

// WithPipelineClock injects a custom clock (useful for tests).
func WithPipelineClock(clock Clock) PipelineOption {
	return func(p *AccessPipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithPipelineMetrics counts the final state of every run.
func WithPipelineMetrics(m *MetricsSink) PipelineOption {
	return func(p *AccessPipeline) {
		p.metrics = m
	}
}

// AccessPipeline drives a request from anonymous to dispatched or rejected.
// Every protected operation goes through Run, there is no other path.
type AccessPipeline struct {
	gate         *Gate
	transitions  map[PipelineState]map[PipelineState]struct{}
	hooks        []PipelineHook
	logger       Logger
	activitySink ActivitySink
	metrics      *MetricsSink
	clock        Clock
}

// NewAccessPipeline returns a pipeline backed by gate.
func NewAccessPipeline(gate *Gate, opts ...PipelineOption) *AccessPipeline {
	p := &AccessPipeline{
		gate: gate,
		transitions: map[PipelineState]map[PipelineState]struct{}{
			StateAnonymous: {
				StateAuthenticating: {},
			},
			StateAuthenticating: {
				StateAuthenticated: {},
				StateRejected:      {},
			},
			StateAuthenticated: {
				StateAuthorized: {},
				StateRejected:   {},
			},
			StateAuthorized: {
				StateDispatched: {},
			},
		},
		logger:       defaultLogger(),
		activitySink: noopActivitySink{},
		clock:        SystemClock,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// CanTransition reports whether from may move to to.
func (p *AccessPipeline) CanTransition(from, to PipelineState) bool {
	_, ok := p.transitions[from][to]
	return ok
}

// Run authenticates the Authorization header value, authorizes the identity
// against allowed and, on success, calls dispatch. A nil allowed list admits
// every authenticated role, an empty non nil list admits nobody. Errors from
// dispatch are returned unchanged and do not reject the run.
func (p *AccessPipeline) Run(ctx context.Context, authorization string, allowed []Role, dispatch DispatchFunc) (*PipelineRun, error) {
	run := &PipelineRun{States: []PipelineState{StateAnonymous}}
	defer p.observe(run)

	if err := p.advance(ctx, run, StateAuthenticating); err != nil {
		return run, err
	}

	token, err := BearerToken(authorization)
	if err != nil {
		return run, p.reject(ctx, run, err)
	}

	identity, err := p.gate.Authenticate(ctx, token)
	if err != nil {
		return run, p.reject(ctx, run, err)
	}
	run.Identity = identity

	if err := p.advance(ctx, run, StateAuthenticated); err != nil {
		return run, err
	}

	if allowed == nil {
		allowed = AllRoles()
	}
	if err := p.gate.Authorize(identity, allowed...); err != nil {
		return run, p.reject(ctx, run, err)
	}

	if err := p.advance(ctx, run, StateAuthorized); err != nil {
		return run, err
	}

	if err := p.advance(ctx, run, StateDispatched); err != nil {
		return run, err
	}

	if dispatch == nil {
		return run, nil
	}
	return run, dispatch(WithIdentity(ctx, identity), identity)
}

// For binds the pipeline to a fixed allow list for use as fiber middleware.
func (p *AccessPipeline) For(roles ...Role) jwtware.Runner {
	var allowed []Role
	if len(roles) > 0 {
		allowed = append([]Role{}, roles...)
	}
	return boundPipeline{pipeline: p, allowed: allowed}
}

func (p *AccessPipeline) advance(ctx context.Context, run *PipelineRun, to PipelineState) error {
	from := run.State()
	if !p.CanTransition(from, to) {
		return oops.Code(textCodeInvalidTransition).
			With("from", from).
			With("to", to).
			Wrap(ErrInvalidTransition)
	}

	run.States = append(run.States, to)
	for _, h := range p.hooks {
		h(ctx, from, to, run)
	}
	return nil
}

func (p *AccessPipeline) reject(ctx context.Context, run *PipelineRun, reason error) error {
	if err := p.advance(ctx, run, StateRejected); err != nil {
		return err
	}
	run.Reason = reason

	userID := ""
	if run.Identity != nil {
		userID = run.Identity.ID()
	}
	event := ActivityEvent{
		EventType:  ActivityEventAccessDenied,
		UserID:     userID,
		OccurredAt: p.clock.Now(),
		Metadata:   map[string]any{"reason": reason.Error()},
	}
	if err := p.activitySink.Record(ctx, event); err != nil {
		p.logger.Warn("access pipeline failed to record activity: %v", err)
	}
	return reason
}

func (p *AccessPipeline) observe(run *PipelineRun) {
	if p.metrics != nil {
		p.metrics.ObserveRun(run)
	}
}

type boundPipeline struct {
	pipeline *AccessPipeline
	allowed  []Role
}

func (b boundPipeline) Run(ctx context.Context, authorization string, dispatch func(ctx context.Context, principal any) error) error {
	_, err := b.pipeline.Run(ctx, authorization, b.allowed, func(ctx context.Context, identity Identity) error {
		return dispatch(ctx, identity)
	})
	return err
}
