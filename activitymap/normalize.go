package activitymap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	auth "github.com/natours-api/go-auth"
)

const (
	// MetadataKeyReason stores why an attempt failed, when known.
	MetadataKeyReason = "reason"
	// MetadataKeyOutcome stores whether the event records a success or a failure.
	MetadataKeyOutcome = "outcome"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
}

var failureEvents = map[auth.ActivityEventType]struct{}{
	auth.ActivityEventLoginFailure:         {},
	auth.ActivityEventPasswordResetFailure: {},
	auth.ActivityEventAccessDenied:         {},
	auth.ActivityEventDeliveryFailure:      {},
}

// Normalize converts an auth.ActivityEvent into a generic normalized shape.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	userID := strings.TrimSpace(event.UserID)
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    firstNonEmpty(userID, options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   userID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback sets the actor id used when the event has no user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// LogSink writes every event to a slog.Logger in normalized form.
type LogSink struct {
	logger *slog.Logger
	opts   []Option
}

// NewLogSink returns an ActivitySink that logs normalized events.
func NewLogSink(logger *slog.Logger, opts ...Option) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, opts: opts}
}

// Record implements auth.ActivitySink.
func (s *LogSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	n := Normalize(event, s.opts...)
	level := slog.LevelInfo
	if n.Metadata[MetadataKeyOutcome] == "failure" {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, "activity",
		slog.String("actor_id", n.ActorID),
		slog.String("verb", n.Verb),
		slog.String("object_type", n.ObjectType),
		slog.String("object_id", n.ObjectID),
		slog.String("channel", n.Channel),
		slog.Any("metadata", n.Metadata),
		slog.Time("occurred_at", n.OccurredAt),
	)
	return nil
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := make(map[string]any, len(event.Metadata)+1)
	for key, value := range event.Metadata {
		metadata[key] = value
	}

	outcome := "success"
	if _, failed := failureEvents[event.EventType]; failed {
		outcome = "failure"
	}
	metadata[MetadataKeyOutcome] = outcome
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
