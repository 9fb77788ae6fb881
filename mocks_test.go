package auth_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/natours-api/go-auth"
)

const testSigningKey = "test-signing-key-0123456789-abcdefghij"

func testConfig() auth.Config {
	cfg := auth.DefaultConfig()
	cfg.SigningKey = testSigningKey
	cfg.HashCost = bcrypt.MinCost
	return cfg
}

// MockStore implements auth.CredentialStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockStore) FindByResetHash(ctx context.Context, hash string, now time.Time) (*auth.User, error) {
	args := m.Called(ctx, hash, now)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	out, _ := args.Get(0).(*auth.User)
	return out, args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, user *auth.User, columns []string, criteria ...auth.UpdateCriteria) error {
	args := m.Called(ctx, user, columns)
	return args.Error(0)
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) { m.Called(format, args) }
func (m *MockLogger) Info(format string, args ...any)  { m.Called(format, args) }
func (m *MockLogger) Warn(format string, args ...any)  { m.Called(format, args) }
func (m *MockLogger) Error(format string, args ...any) { m.Called(format, args) }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// outbox records sent messages and can be told to fail.
type outbox struct {
	mu       sync.Mutex
	messages []auth.Message
	err      error
}

func (o *outbox) Send(_ context.Context, msg auth.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return o.err
}

func (o *outbox) failWith(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.messages)
}

func (o *outbox) last(t *testing.T) auth.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.messages, "no message was sent")
	return o.messages[len(o.messages)-1]
}

var resetTokenPattern = regexp.MustCompile(`[0-9a-f]{64}`)

func resetTokenFrom(t *testing.T, msg auth.Message) string {
	t.Helper()
	token := resetTokenPattern.FindString(msg.Body)
	require.NotEmpty(t, token, "message carries no reset token: %q", msg.Body)
	return token
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// every pooled connection would get its own empty :memory: database
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, auth.Migrate(context.Background(), db))
	return db
}

type fixture struct {
	auther *auth.Auther
	users  auth.Users
	clock  *testClock
	outbox *outbox
	events *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (l *eventLog) Record(_ context.Context, event auth.ActivityEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) types() []auth.ActivityEventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.EventType)
	}
	return out
}

func newFixture(t *testing.T, opts ...auth.AutherOption) *fixture {
	t.Helper()

	clock := newTestClock()
	db := newTestDB(t)
	users := auth.NewUsersRepository(db, auth.WithUsersClock(clock))
	box := &outbox{}
	events := &eventLog{}

	base := []auth.AutherOption{
		auth.WithClock(clock),
		auth.WithActivitySink(events),
	}
	auther, err := auth.NewAuthenticator(testConfig(), users, box, append(base, opts...)...)
	require.NoError(t, err)

	return &fixture{auther: auther, users: users, clock: clock, outbox: box, events: events}
}

func (f *fixture) signup(t *testing.T, name, email, password string) *auth.AuthResult {
	t.Helper()
	result, err := f.auther.Signup(context.Background(), auth.SignupInput{
		Name:            name,
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) promote(t *testing.T, user *auth.User, role auth.Role) {
	t.Helper()
	user.Role = role
	require.NoError(t, f.users.Update(context.Background(), user, []string{auth.ColumnRole}))
}

var errBoom = errors.New("boom")
