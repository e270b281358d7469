package events

import (
	"context"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"careerboost/internal/config"
	"careerboost/internal/errors"
	"careerboost/internal/resume"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventSessionUpdate is the type of every session phase notification
const EventSessionUpdate = "session.update"

const publishTimeout = 5 * time.Second

// Event is the payload published for a session transition
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	From      string    `json:"from"`
	Phase     string    `json:"phase"`
	Score     int       `json:"score"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// RoutingKey returns the topic routing key, session.<id>
func (e Event) RoutingKey() string {
	return "session." + e.SessionID
}

// FromTransition converts a session transition into an event
func FromTransition(t resume.Transition) Event {
	return Event{
		Type:      EventSessionUpdate,
		SessionID: t.SessionID,
		UserID:    t.UserID,
		Action:    t.Action,
		From:      string(t.From),
		Phase:     string(t.To),
		Score:     t.Score,
		Error:     t.Error,
		At:        t.At.UTC(),
	}
}

// Publisher delivers session events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// New returns the publisher for cfg. Disabled events get a no-op
// publisher and the URL "log" writes events to the application log.
func New(cfg *config.EventsConfig, logger *errors.Logger) (Publisher, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if !cfg.Enabled {
		return NopPublisher{}, nil
	}
	if strings.EqualFold(cfg.URL, "log") {
		return NewLogPublisher(logger), nil
	}
	return NewAMQPPublisher(cfg, logger)
}

// Observer adapts a publisher to a session observer. Failures are logged
// and never affect the session.
func Observer(p Publisher, logger *errors.Logger) resume.Observer {
	return func(t resume.Transition) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, FromTransition(t)); err != nil && logger != nil {
			logger.LogError(err, "Failed to publish session event",
				"session_id", t.SessionID,
				"action", t.Action)
		}
	}
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// LogPublisher writes events to the logger
type LogPublisher struct {
	logger *errors.Logger
}

func NewLogPublisher(logger *errors.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info("Session event",
		"routing_key", e.RoutingKey(),
		"action", e.Action,
		"from", e.From,
		"phase", e.Phase,
		"score", e.Score)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
