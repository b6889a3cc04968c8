// Package publisher announces customer verdicts on Kafka so downstream
// systems (rewards, field sales) can react without polling the result store.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/pkg/platform/sentinel"
)

// VerdictEvent is the message value published per customer.
type VerdictEvent struct {
	EventID        string        `json:"event_id"`
	Period         string        `json:"period"`
	CustomerID     string        `json:"customer_id"`
	Status         models.Status `json:"status"`
	Reason         models.Reason `json:"reason"`
	Category       string        `json:"category"`
	PassedGroups   int           `json:"passed_groups"`
	TotalGroups    int           `json:"total_groups"`
	PassedPrograms int           `json:"passed_programs"`
	TotalPrograms  int           `json:"total_programs"`
	TotalPoints    int           `json:"total_points"`
	MaxPoints      int           `json:"max_points"`
	ExceptionFlag  bool          `json:"exception_flag"`
	Failures       []string      `json:"failures,omitempty"`
	EmittedAt      time.Time     `json:"emitted_at"`
}

func newVerdictEvent(period models.Period, c models.CustomerVerdict, now time.Time) VerdictEvent {
	ev := VerdictEvent{
		EventID:        uuid.NewString(),
		Period:         period.String(),
		CustomerID:     c.CustomerID,
		Status:         c.Status,
		Reason:         c.Reason,
		Category:       string(c.Reason.Category()),
		PassedGroups:   c.PassedGroups,
		TotalGroups:    c.TotalGroups,
		PassedPrograms: c.PassedPrograms,
		TotalPrograms:  c.TotalPrograms,
		TotalPoints:    c.TotalPoints,
		MaxPoints:      c.MaxPoints,
		ExceptionFlag:  c.ExceptionFlag,
		EmittedAt:      now,
	}
	for _, f := range c.Failures {
		ev.Failures = append(ev.Failures, f.String())
	}
	return ev
}

// producer is the part of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher produces one record per customer verdict, keyed by customer id so
// a customer's verdicts stay ordered within a partition.
type Publisher struct {
	client  producer
	topic   string
	breaker *Breaker
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithBreaker replaces the default breaker (5 failures, one minute cooldown).
func WithBreaker(b *Breaker) Option {
	return func(p *Publisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func New(client producer, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		client:  client,
		topic:   topic,
		breaker: NewBreaker(5, time.Minute),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishVerdicts produces the batch synchronously. While the breaker is open
// it returns sentinel.ErrUnavailable without contacting the broker.
func (p *Publisher) PublishVerdicts(ctx context.Context, period models.Period, results []models.CustomerResult) error {
	if len(results) == 0 {
		return nil
	}
	now := p.now()
	records := make([]*kgo.Record, 0, len(results))
	for _, r := range results {
		value, err := json.Marshal(newVerdictEvent(period, r.Customer, now))
		if err != nil {
			return fmt.Errorf("marshal verdict event: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(r.Customer.CustomerID),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "period", Value: []byte(period.String())},
				{Key: "status", Value: []byte(r.Customer.Status)},
			},
		})
	}

	if !p.breaker.Allow() {
		return fmt.Errorf("verdict publishing suspended: %w", sentinel.ErrUnavailable)
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		p.breaker.RecordFailure()
		return fmt.Errorf("produce verdict events: %w", err)
	}
	p.breaker.RecordSuccess()
	return nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
