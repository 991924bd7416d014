// Package audit publishes the outcome of every Buffer call to Kafka.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/milan604/buffer-go/pkg/buffer"
	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Writer is the part of *kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the JSON document published per call. It never carries parameters
// or the access token.
type Event struct {
	Method     string    `json:"method,omitempty"`
	Pattern    string    `json:"pattern,omitempty"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
	Outcome    string    `json:"outcome"`
	ErrorKey   string    `json:"error_key,omitempty"`
	Error      string    `json:"error,omitempty"`
}

const (
	OutcomeOK        = "ok"
	OutcomeAPIError  = "api_error"
	OutcomeTransport = "transport_error"
)

// NewEvent summarises a call.
func NewEvent(ev buffer.CallEvent) Event {
	out := Event{
		Method:     ev.Method,
		Pattern:    ev.Pattern,
		Path:       ev.Path,
		StatusCode: ev.StatusCode,
		DurationMS: ev.Duration.Milliseconds(),
		At:         ev.At.UTC(),
		Outcome:    OutcomeOK,
	}
	if ev.Err == nil {
		return out
	}
	out.Error = ev.Err.Error()
	if apiErr, ok := buffer.AsAPIError(ev.Err); ok {
		out.Outcome = OutcomeAPIError
		out.ErrorKey = apiErr.Key()
		out.Error = apiErr.Message
	} else {
		out.Outcome = OutcomeTransport
	}
	return out
}

// Sink is a buffer.CallObserver writing events to Kafka.
type Sink struct {
	w       Writer
	log     logger.LogManager
	timeout time.Duration
}

type Option func(*Sink)

func WithLogger(l logger.LogManager) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTimeout bounds each publish. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(s *Sink) { s.timeout = d }
}

func NewSink(w Writer, opts ...Option) *Sink {
	s := &Sink{w: w, log: logger.NewNop(), timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewKafkaSink publishes asynchronously to topic on brokers.
func NewKafkaSink(brokers []string, topic string, opts ...Option) *Sink {
	s := NewSink(nil, opts...)
	s.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				s.log.WarnF("audit: %d events not delivered to %s: %v", len(msgs), topic, err)
			}
		},
	}
	return s
}

// ObserveCall publishes ev keyed by endpoint pattern. Failures are logged, never
// returned to the caller of the Buffer API.
func (s *Sink) ObserveCall(ctx context.Context, ev buffer.CallEvent) {
	payload, err := json.Marshal(NewEvent(ev))
	if err != nil {
		s.log.WarnFCtx(ctx, "audit: encode event: %v", err)
		return
	}
	key := ev.Pattern
	if key == "" {
		key = buffer.ReasonInvalidEndpoint
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload, Time: ev.At}); err != nil {
		s.log.WarnFCtx(ctx, "audit: publish %s: %v", key, err)
	}
}

func (s *Sink) Close() error {
	return s.w.Close()
}

var _ buffer.CallObserver = (*Sink)(nil)
