// Package renderevents publishes a notice to Kafka for every figure the
// atlas server renders.
package renderevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type Event struct {
	Kind       string    `json:"kind"`
	Dataset    string    `json:"dataset"`
	Variable   string    `json:"variable,omitempty"`
	Format     string    `json:"format"`
	Cache      string    `json:"cache"`
	Bytes      int       `json:"bytes"`
	DurationMS int64     `json:"duration_ms"`
	TS         time.Time `json:"ts"`
}

// Publisher queues events and hands them to an async producer. Publish never
// blocks the request path: events are dropped when the queue is full.
type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	log     *slog.Logger
	stopped chan struct{}
	errDone chan struct{}
}

func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("renderevents: create async producer: %w", err)
	}
	return NewWithProducer(prod, topic, queueSize, log), nil
}

// NewWithProducer wraps an existing producer; the publisher owns it from now on.
func NewWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		log:     log,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("render event marshal failed", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Dataset),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("render event producer error", "topic", p.topic, "err", err.Err)
			}
		}
	}()

	return p
}

func (p *Publisher) Publish(ev Event) {
	if p == nil {
		return
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	select {
	case p.events <- ev:
	default:
		// queue full: drop, the notice is advisory
	}
}

// Close flushes queued events and closes the producer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	close(p.events)
	<-p.stopped

	err := p.prod.Close()
	<-p.errDone
	if err != nil {
		return fmt.Errorf("renderevents: close producer: %w", err)
	}
	return nil
}
