// Package kafka streams audit events to a Kafka topic, keyed by RC entry id so one
// case's history stays ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "rctrack/pkg/platform/audit"
)

// Message is the wire form of an audit event.
type Message struct {
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId,omitempty"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	ClientIP  string    `json:"clientIp,omitempty"`
	Client    string    `json:"client,omitempty"`
}

// ToMessage converts an event into its wire form.
func ToMessage(e audit.Event) Message {
	m := Message{
		Category:  string(audit.AuditEvent(e.Action).Category()),
		Timestamp: e.Timestamp.UTC(),
		Subject:   e.Subject,
		Action:    e.Action,
		Decision:  e.Decision,
		Reason:    e.Reason,
		RequestID: e.RequestID,
		ActorID:   e.ActorID,
		ClientIP:  e.ClientIP,
		Client:    e.Client,
	}
	if !e.UserID.IsNil() {
		m.UserID = e.UserID.String()
	}
	return m
}

type Store struct {
	client *kgo.Client
	topic  string
}

// New connects a producer to brokers. The connection is verified with a ping.
func New(ctx context.Context, brokers []string, topic string) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka: ping brokers: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (s *Store) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, s.topic)
	if err != nil {
		return fmt.Errorf("kafka: create topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka: create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Append produces the event synchronously so a failure is reported to the caller
// (the async publisher logs it).
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(ToMessage(event))
	if err != nil {
		return fmt.Errorf("kafka: marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce audit event: %w", err)
	}
	return nil
}

// Health pings the brokers.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close flushes pending records and closes the client.
func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Flush(ctx)
	s.client.Close()
}
