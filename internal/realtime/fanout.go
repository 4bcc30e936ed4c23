package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"ember/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "chat:user:"

// Envelope is what travels between processes on a user channel.
type Envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// Fanout publishes relayed events to per-user Redis channels so every server
// process can deliver to the sessions it holds.
type Fanout struct {
	rdb *redis.Client
}

// NewFanout returns a Fanout over rdb. A nil client makes it a no-op.
func NewFanout(rdb *redis.Client) *Fanout {
	return &Fanout{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (f *Fanout) Enabled() bool {
	return f != nil && f.rdb != nil
}

// Publish sends env to userID's channel.
func (f *Fanout) Publish(ctx context.Context, userID uint, env Envelope) error {
	if !f.Enabled() {
		return nil
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, fmt.Sprintf("%s%d", userChannelPrefix, userID), data).Err()
}

// Subscribe listens on every user channel until ctx is done, calling
// onEvent for each well-formed envelope. It returns once the subscription is
// confirmed.
func (f *Fanout) Subscribe(ctx context.Context, onEvent func(userID uint, env Envelope)) error {
	if !f.Enabled() {
		return nil
	}
	sub := f.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				f.dispatch(msg, onEvent)
			}
		}
	}()
	return nil
}

func (f *Fanout) dispatch(msg *redis.Message, onEvent func(uint, Envelope)) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("panic in fan-out subscriber",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	id, err := strconv.ParseUint(strings.TrimPrefix(msg.Channel, userChannelPrefix), 10, 64)
	if err != nil {
		return
	}
	var env Envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		middleware.Logger.Warn("malformed fan-out envelope",
			slog.String("channel", msg.Channel),
			slog.String("error", err.Error()),
		)
		return
	}
	onEvent(uint(id), env)
}
