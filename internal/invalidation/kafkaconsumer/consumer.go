// Package kafkaconsumer runs the cache purge consumer group. Writers that
// mutate place data publish purge events naming the cache keys they
// invalidate; this consumer deletes those keys so readers stop serving stale
// entries before the TTL runs out.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/chompapp/search-api/internal/cache"
	"github.com/chompapp/search-api/internal/core/observability"
	"github.com/chompapp/search-api/internal/invalidation"
)

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	cache  cache.Store
}

func New(cfg Config, logger *slog.Logger, c cache.Store) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{cfg: cfg, logger: logger, cache: c}
}

// Start joins the consumer group and blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cache == nil {
		return errors.New("kafkaconsumer: missing cache store")
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

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("cache purge consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache purge consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error("consumer error", "err", err)
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single purge event. Malformed events are dropped so a
// bad producer cannot wedge the partition; delete failures are returned so
// the offset stays unmarked and the event is retried.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.IncInvalidation("decode_error")
		c.logger.Error("undecodable purge event, dropping",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		observability.IncInvalidation("invalid")
		c.logger.Error("invalid purge event, dropping",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}

	deleted := 0
	for _, k := range ev.Keys {
		ok, err := c.cache.Delete(ctx, k)
		if err != nil {
			observability.IncInvalidation("delete_error")
			return fmt.Errorf("delete %q: %w", k, err)
		}
		if ok {
			deleted++
		}
	}

	observability.IncInvalidation("ok")
	c.logger.Info("purged cache keys",
		"source", ev.Source, "keys", len(ev.Keys), "deleted", deleted,
		"partition", msg.Partition, "offset", msg.Offset)
	return nil
}
