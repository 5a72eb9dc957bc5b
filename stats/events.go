package stats

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/iov-one/fundtool/errors"
	jsoniter "github.com/json-iterator/go"
)

// Event types published by the dispatch engine.
const (
	EventTx      = "tx"
	EventSkip    = "skip"
	EventSummary = "summary"
)

// TxEvent describes a state change of a dispatched transaction.
type TxEvent struct {
	Nonce     uint64 `json:"nonce"`
	Hash      string `json:"hash,omitempty"`
	State     string `json:"state"`
	Transfers int    `json:"transfers"`
	// Amount is the total value in wei, as a decimal string.
	Amount string `json:"amount"`
	Error  string `json:"error,omitempty"`
}

// SkipEvent describes requests that were not sent.
type SkipEvent struct {
	Transfers int    `json:"transfers"`
	Amount    string `json:"amount"`
	Balance   string `json:"balance"`
}

// Envelope wraps every published event.
type Envelope struct {
	Type string `json:"type"`
	// Run identifies the funding run that published the event.
	Run string `json:"run"`
	// TS is the unix time in milliseconds.
	TS   int64               `json:"ts"`
	Data jsoniter.RawMessage `json:"data"`
}

// Sink publishes events.
type Sink interface {
	Emit(ctx context.Context, typ string, v interface{}) error
	Close() error
}

// NopSink discards all events.
type NopSink struct{}

var _ Sink = NopSink{}

func (NopSink) Emit(context.Context, string, interface{}) error { return nil }
func (NopSink) Close() error                                    { return nil }

// KafkaSink publishes events to a Kafka topic.
type KafkaSink struct {
	topic string
	run   string
	p     sarama.SyncProducer
}

var _ Sink = (*KafkaSink)(nil)

// NewKafkaSink connects to given brokers.
func NewKafkaSink(brokers []string, topic string, cfg *sarama.Config) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "kafka brokers")
	}
	if topic == "" {
		return nil, errors.Wrap(errors.ErrEmpty, "kafka topic")
	}
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "kafka producer: %s", err)
	}
	return NewKafkaSinkWithProducer(p, topic), nil
}

// NewKafkaSinkWithProducer returns a sink using given producer. Every sink
// gets a new run id.
func NewKafkaSinkWithProducer(p sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{
		topic: topic,
		run:   uuid.New().String(),
		p:     p,
	}
}

// Run returns the id attached to all events of this sink.
func (s *KafkaSink) Run() string {
	return s.run
}

// Emit implements Sink interface. The message key is the run id so that all
// events of a run land in the same partition, in order.
func (s *KafkaSink) Emit(ctx context.Context, typ string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "encode %s event: %s", typ, err)
	}
	env := Envelope{
		Type: typ,
		Run:  s.run,
		TS:   time.Now().UnixMilli(),
		Data: data,
	}
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(env)
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "encode envelope: %s", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(s.run),
		Value: sarama.ByteEncoder(b),
	}
	if _, _, err := s.p.SendMessage(msg); err != nil {
		return errors.Wrapf(errors.ErrNetwork, "kafka emit: %s", err)
	}
	return nil
}

// Close implements Sink interface.
func (s *KafkaSink) Close() error {
	if s.p != nil {
		return s.p.Close()
	}
	return nil
}
