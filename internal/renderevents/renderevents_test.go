package renderevents

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestPublisher_SendsJSONKeyedByDataset(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	prod := mocks.NewAsyncProducer(t, cfg)

	var got Event
	var key string
	prod.ExpectInputWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		k, err := m.Key.Encode()
		if err != nil {
			return err
		}
		key = string(k)
		v, err := m.Value.Encode()
		if err != nil {
			return err
		}
		if m.Topic != "atlas-renders" {
			return errors.New("wrong topic " + m.Topic)
		}
		return json.Unmarshal(v, &got)
	})

	p := NewWithProducer(prod, "atlas-renders", 4, nil)
	p.Publish(Event{Kind: "variable", Dataset: "ecmwf", Variable: "tp", Format: "png", Cache: "miss", Bytes: 10})

	select {
	case <-prod.Successes():
	case <-time.After(2 * time.Second):
		t.Fatalf("event not produced")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if key != "ecmwf" || got.Variable != "tp" || got.TS.IsZero() {
		t.Fatalf("unexpected message key=%q event=%+v", key, got)
	}
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *Publisher
	p.Publish(Event{Kind: "variable"})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
