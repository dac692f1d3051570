package kafkaconsumer

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/IBM/sarama"
)

type messageProcessor func(context.Context, *sarama.ConsumerMessage) error

// groupHandler processes each claim in offset order and marks a message
// only after it was applied. It also tracks the partitions it owns.
type groupHandler struct {
	process messageProcessor

	mu    sync.Mutex
	parts map[int32]struct{}
}

func (h *groupHandler) Setup(s sarama.ConsumerGroupSession) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.parts = make(map[int32]struct{})
	for _, ps := range s.Claims() {
		for _, p := range ps {
			h.parts[p] = struct{}{}
		}
	}
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.mu.Lock()
	h.parts = nil
	h.mu.Unlock()
	return nil
}

func (h *groupHandler) partitions() []int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.parts == nil {
		return nil
	}
	out := make([]int32, 0, len(h.parts))
	for p := range h.parts {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("claim context done: %w", ctx.Err())
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.process(ctx, msg); err != nil {
				return fmt.Errorf("process failed (topic=%s, part=%d, off=%d): %w",
					msg.Topic, msg.Partition, msg.Offset, err)
			}
			sess.MarkMessage(msg, "")
		}
	}
}
