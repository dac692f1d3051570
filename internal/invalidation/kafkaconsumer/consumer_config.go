package kafkaconsumer

import (
	"time"

	"github.com/mohammed-shakir/repp-atlas/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	RetryBackoff        time.Duration
	InitialOffsetOldest bool
}

// FromConfig fills the consumer settings from the service config; the
// group timings use sarama-friendly defaults.
func FromConfig(c config.KafkaCfg) Config {
	return Config{
		Brokers:             c.Brokers,
		Topic:               c.Topic,
		GroupID:             c.GroupID,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    30 * time.Second,
		RetryBackoff:        2 * time.Second,
		InitialOffsetOldest: false,
	}
}
