package events

import (
	"context"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"careerboost/internal/config"
	"careerboost/internal/errors"
)

const (
	defaultExchange    = "session_updates"
	defaultDialTimeout = 5 * time.Second
	amqpHeartbeat      = 10 * time.Second
)

// AMQPPublisher publishes events to a durable topic exchange. The channel is
// reopened once when a publish finds it closed.
type AMQPPublisher struct {
	mu          sync.Mutex
	url         string
	exchange    string
	dialTimeout time.Duration
	conn        *amqp.Connection
	ch          *amqp.Channel
	closed      bool
	logger      *errors.Logger
}

// NewAMQPPublisher dials the broker and declares the exchange. The dial
// timeout covers both the TCP connect and the protocol handshake.
func NewAMQPPublisher(cfg *config.EventsConfig, logger *errors.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	p := &AMQPPublisher{
		url:         cfg.URL,
		exchange:    cfg.Exchange,
		dialTimeout: cfg.DialTimeout,
		logger:      logger,
	}
	if p.exchange == "" {
		p.exchange = defaultExchange
	}
	if p.dialTimeout <= 0 {
		p.dialTimeout = defaultDialTimeout
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	logger.Info("AMQP publisher connected", "exchange", p.exchange)
	return p, nil
}

// connect (re)opens the connection and channel. Callers hold mu or own p.
func (p *AMQPPublisher) connect() error {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.DialConfig(p.url, amqp.Config{
			Heartbeat: amqpHeartbeat,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(p.dialTimeout),
		})
		if err != nil {
			return errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "failed to connect to message broker", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "failed to open broker channel", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // auto-delete
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		_ = ch.Close()
		return errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "failed to declare exchange", err).
			WithContext("exchange", p.exchange)
	}
	p.ch = ch
	return nil
}

// Publish sends e with routing key session.<id>
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return errors.NewInternalError("EVENT_ENCODING_FAILED", "failed to encode event", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.At,
		Type:         e.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.NewInternalError("PUBLISHER_CLOSED", "event publisher is closed", nil)
	}

	err = p.publish(e.RoutingKey(), msg)
	if err == nil {
		return nil
	}
	p.logger.Warn("Publish failed, reconnecting", "error", err.Error())
	if cerr := p.connect(); cerr != nil {
		return cerr
	}
	if err := p.publish(e.RoutingKey(), msg); err != nil {
		return errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "failed to publish event", err).
			WithContext("routing_key", e.RoutingKey())
	}
	return nil
}

func (p *AMQPPublisher) publish(key string, msg amqp.Publishing) error {
	if p.ch == nil {
		return amqp.ErrClosed
	}
	return p.ch.Publish(
		p.exchange,
		key,
		false, // mandatory
		false, // immediate
		msg,
	)
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
