package auth

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// AuthResult is returned by every operation that starts a session.
type AuthResult struct {
	Token string
	User  *User
}

// services bundles the collaborators shared by the command handlers.
type services struct {
	cfg        Config
	store      CredentialStore
	hasher     PasswordHasher
	tokens     TokenService
	dispatcher Dispatcher
	clock      Clock
	logger     Logger
	activity   ActivitySink
}

func (s *services) emit(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.clock.Now(),
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("failed to record activity %s: %v", eventType, err)
	}
}

func (s *services) issue(user *User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID.String())
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// AutherOption customizes the Auther.
type AutherOption func(*Auther)

// WithClock injects the time source used for every expiry decision.
func WithClock(clock Clock) AutherOption {
	return func(a *Auther) {
		if clock != nil {
			a.svc.clock = clock
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger Logger) AutherOption {
	return func(a *Auther) {
		if logger != nil {
			a.svc.logger = logger
		}
	}
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func WithActivitySink(sink ActivitySink) AutherOption {
	return func(a *Auther) {
		a.svc.activity = normalizeActivitySink(sink)
	}
}

// WithHasher replaces the bcrypt hasher.
func WithHasher(hasher PasswordHasher) AutherOption {
	return func(a *Auther) {
		if hasher != nil {
			a.svc.hasher = hasher
		}
	}
}

// WithTokenService replaces the JWT token service.
func WithTokenService(tokens TokenService) AutherOption {
	return func(a *Auther) {
		if tokens != nil {
			a.svc.tokens = tokens
		}
	}
}

// WithMetrics counts activity events and pipeline outcomes on m.
func WithMetrics(m *MetricsSink) AutherOption {
	return func(a *Auther) {
		a.metrics = m
	}
}

// Auther wires the credential operations, the gate and the access pipeline.
type Auther struct {
	svc      *services
	metrics  *MetricsSink
	gate     *Gate
	pipeline *AccessPipeline

	register       *RegisterUserHandler
	resetInit      *InitializePasswordResetHandler
	resetFinalize  *FinalizePasswordResetHandler
	passwordUpdate *UpdatePasswordHandler

	dummyHash string
}

// NewAuthenticator validates cfg and builds an Auther on top of store and
// dispatcher.
func NewAuthenticator(cfg Config, store CredentialStore, dispatcher Dispatcher, opts ...AutherOption) (*Auther, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, oops.Code(textCodeInvalidConfig).Errorf("credential store is required")
	}
	if dispatcher == nil {
		return nil, oops.Code(textCodeInvalidConfig).Errorf("dispatcher is required")
	}

	a := &Auther{
		svc: &services{
			cfg:        cfg,
			store:      store,
			dispatcher: dispatcher,
			clock:      SystemClock,
			logger:     defaultLogger(),
			activity:   noopActivitySink{},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	svc := a.svc
	if svc.hasher == nil {
		svc.hasher = NewBcryptHasher(cfg.HashCost)
	}
	if svc.tokens == nil {
		svc.tokens = NewTokenService([]byte(cfg.SigningKey), cfg.TokenTTL, cfg.Issuer, svc.clock, svc.logger)
	}
	if a.metrics != nil {
		svc.activity = MultiActivitySink{svc.activity, a.metrics}
	}

	dummy, err := svc.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}
	a.dummyHash = dummy

	a.gate = NewGate(svc.tokens, svc.store, svc.logger)
	a.pipeline = NewAccessPipeline(a.gate,
		WithPipelineLogger(svc.logger),
		WithPipelineActivitySink(svc.activity),
		WithPipelineClock(svc.clock),
		WithPipelineMetrics(a.metrics),
	)

	a.register = &RegisterUserHandler{svc: svc}
	a.resetInit = &InitializePasswordResetHandler{svc: svc}
	a.resetFinalize = &FinalizePasswordResetHandler{svc: svc}
	a.passwordUpdate = &UpdatePasswordHandler{svc: svc}

	return a, nil
}

// Gate returns the authorization gate.
func (a *Auther) Gate() *Gate {
	return a.gate
}

// Pipeline returns the access control pipeline.
func (a *Auther) Pipeline() *AccessPipeline {
	return a.pipeline
}

// TokenService returns the TokenService instance used by this Authenticator
func (a *Auther) TokenService() TokenService {
	return a.svc.tokens
}

// Config returns the validated configuration.
func (a *Auther) Config() Config {
	return a.svc.cfg
}

// Signup registers a new user with RoleUser and starts a session.
func (a *Auther) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	return a.register.Execute(ctx, RegisterUserMessage{
		Name:            in.Name,
		Email:           in.Email,
		Password:        in.Password,
		PasswordConfirm: in.PasswordConfirm,
	})
}

// Login checks credentials and starts a session. Unknown emails, inactive
// accounts and wrong passwords are indistinguishable to the caller.
func (a *Auther) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if err := validateLogin(email, password); err != nil {
		return nil, err
	}

	user, err := a.svc.store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		// keep timing close to the found path
		_ = a.svc.hasher.Compare(password, a.dummyHash)
		a.svc.emit(ctx, ActivityEventLoginFailure, "", map[string]any{"reason": "unknown_email"})
		return nil, oops.Code(textCodeAuth).Wrap(ErrAuth)
	}

	if err := a.svc.hasher.Compare(password, user.PasswordHash); err != nil {
		if !errors.Is(err, ErrAuth) {
			return nil, err
		}
		a.svc.emit(ctx, ActivityEventLoginFailure, user.ID.String(), map[string]any{"reason": "password_mismatch"})
		return nil, oops.Code(textCodeAuth).With("user_id", user.ID.String()).Wrap(ErrAuth)
	}

	if !user.Active {
		a.svc.emit(ctx, ActivityEventLoginFailure, user.ID.String(), map[string]any{"reason": "inactive"})
		return nil, oops.Code(textCodeAuth).With("user_id", user.ID.String()).Wrap(ErrAuth)
	}

	result, err := a.svc.issue(user)
	if err != nil {
		return nil, err
	}
	a.svc.emit(ctx, ActivityEventLoginSuccess, user.ID.String(), nil)
	return result, nil
}

// ForgotPassword starts a reset for email. It succeeds without side effects
// when no active account matches.
func (a *Auther) ForgotPassword(ctx context.Context, email string) error {
	return a.resetInit.Execute(ctx, InitializePasswordResetMessage{Email: email})
}

// ResetPassword consumes a reset token and sets a new password.
func (a *Auther) ResetPassword(ctx context.Context, token, password, passwordConfirm string) (*AuthResult, error) {
	return a.resetFinalize.Execute(ctx, FinalizePasswordResetMessage{
		Token:           token,
		Password:        password,
		PasswordConfirm: passwordConfirm,
	})
}

// UpdatePassword changes the password of an authenticated user after
// checking the current one.
func (a *Auther) UpdatePassword(ctx context.Context, identity Identity, current, password, passwordConfirm string) (*AuthResult, error) {
	return a.passwordUpdate.Execute(ctx, UpdatePasswordMessage{
		Identity:        identity,
		CurrentPassword: current,
		Password:        password,
		PasswordConfirm: passwordConfirm,
	})
}

// Me returns the current record of identity.
func (a *Auther) Me(ctx context.Context, identity Identity) (*User, error) {
	return a.svc.loadActive(ctx, identity)
}

// UpdateProfile changes name and email. Password fields are refused.
func (a *Auther) UpdateProfile(ctx context.Context, identity Identity, in ProfileInput) (*User, error) {
	if in.Password != "" || in.PasswordConfirm != "" {
		return nil, oops.Code(textCodeValidation).Wrap(ErrPasswordRoute)
	}

	user, err := a.svc.loadActive(ctx, identity)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, 2)
	if in.Name != nil {
		user.Name = *in.Name
		columns = append(columns, ColumnName)
	}
	if in.Email != nil {
		user.Email = NormalizeEmail(*in.Email)
		columns = append(columns, ColumnEmail)
	}
	if err := validateProfile(user); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return user, nil
	}

	if err := a.svc.store.Update(ctx, user, columns, WhereActive()); err != nil {
		return nil, err
	}
	a.svc.emit(ctx, ActivityEventProfileUpdated, user.ID.String(), map[string]any{"columns": columns})
	return user, nil
}

// Deactivate marks the account inactive. Existing tokens stop working and
// the account can no longer log in.
func (a *Auther) Deactivate(ctx context.Context, identity Identity) error {
	user, err := a.svc.loadActive(ctx, identity)
	if err != nil {
		return err
	}

	user.Active = false
	if err := a.svc.store.Update(ctx, user, []string{ColumnActive}); err != nil {
		return err
	}
	a.svc.emit(ctx, ActivityEventAccountDeactivated, user.ID.String(), nil)
	return nil
}

// Close releases the dispatcher when it holds resources.
func (a *Auther) Close() error {
	if closer, ok := a.svc.dispatcher.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *services) loadActive(ctx context.Context, identity Identity) (*User, error) {
	if identity == nil {
		return nil, oops.Code(textCodeUnauthorized).Wrap(ErrUnauthenticated)
	}

	id, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, oops.Code(textCodeUnauthorized).With("user_id", identity.ID()).Wrap(ErrUnauthenticated)
	}

	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, oops.Code(textCodeUnauthorized).With("user_id", id.String()).Wrap(ErrTokenUserGone)
		}
		return nil, err
	}
	if !user.Active {
		return nil, oops.Code(textCodeUnauthorized).With("user_id", id.String()).Wrap(ErrTokenUserGone)
	}
	return user, nil
}
