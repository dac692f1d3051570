// Package kafkaconsumer applies dataset invalidation events from Kafka to
// the render cache and the in-memory dataset cache.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	obs "github.com/mohammed-shakir/repp-atlas/internal/core/observability"
	"github.com/mohammed-shakir/repp-atlas/internal/grid"
	"github.com/mohammed-shakir/repp-atlas/internal/invalidation"
	mylog "github.com/mohammed-shakir/repp-atlas/internal/logger"
)

// Purger drops cached figures of a dataset.
type Purger interface {
	InvalidateDataset(ctx context.Context, dataset string) (int, error)
}

// Dropper evicts an opened dataset from memory.
type Dropper interface {
	Drop(name string) bool
}

type Consumer struct {
	cfg      Config
	logger   *slog.Logger
	renders  Purger
	datasets Dropper
	dedupe   *invalidation.Dedupe
	handler  *groupHandler
}

func New(cfg Config, logger *slog.Logger, renders Purger, datasets Dropper) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Consumer{
		cfg:      cfg,
		logger:   logger,
		renders:  renders,
		datasets: datasets,
		dedupe:   invalidation.NewDedupe(0),
	}
	c.handler = &groupHandler{process: c.ProcessOne}
	return c
}

// Start joins the consumer group and processes events until ctx ends.
func (c *Consumer) Start(ctx context.Context) error {
	if c.renders == nil && c.datasets == nil {
		return errors.New("kafkaconsumer: nothing to invalidate")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	ctx = mylog.WithComponent(ctx, "kafka_consumer")
	c.logger.InfoContext(ctx, "invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		if err := group.Consume(ctx, []string{c.cfg.Topic}, c.handler); err != nil {
			obs.IncKafkaConsumerError("consume")
			c.logger.ErrorContext(ctx, "kafka consumer error", "topic", c.cfg.Topic, "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.RetryBackoff):
			}
		}
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "invalidation consumer shutting down")
			return nil
		}
	}
}

// Readiness reports whether the consumer currently owns partitions.
func (c *Consumer) Readiness() (bool, []int32) {
	ps := c.handler.partitions()
	return ps != nil, ps
}

// ProcessOne applies a single invalidation message. Malformed events are
// logged and skipped so they cannot block the partition.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncKafkaConsumerError("decode")
		c.logger.WarnContext(ctx, "skipping undecodable invalidation event",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.IncKafkaConsumerError("validate")
		c.logger.WarnContext(ctx, "skipping invalid invalidation event",
			"offset", msg.Offset, "err", err)
		return nil
	}
	ev.Dataset = grid.DatasetName(ev.Dataset)
	if !c.dedupe.ShouldApply(ev) {
		c.logger.DebugContext(ctx, "stale invalidation event", "dataset", ev.Dataset, "ts", ev.TS)
		return nil
	}

	ctx = mylog.WithRender(ctx, ev.Dataset, "")
	if c.datasets != nil && c.datasets.Drop(ev.Dataset) {
		c.logger.DebugContext(ctx, "dataset evicted from memory")
	}

	n := 0
	if c.renders != nil {
		var err error
		n, err = c.renders.InvalidateDataset(ctx, ev.Dataset)
		if err != nil {
			obs.IncKafkaConsumerError("redis_purge")
			c.dedupe.Forget(ev.Dataset)
			return fmt.Errorf("purge %s: %w", ev.Dataset, err)
		}
	}

	obs.ObserveInvalidation(ev.Op, n)
	c.logger.InfoContext(ctx, "dataset invalidated", "op", ev.Op, "keys", n)
	return nil
}
