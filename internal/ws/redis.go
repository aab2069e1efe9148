package ws

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	errMissingMatchID = errors.New("frame has no match_id")
	errHubClosed      = errors.New("spectator hub is closed")
)

// RunFrameSubscriber relays frames published on channel to the hub until ctx
// is done.
func RunFrameSubscriber(ctx context.Context, rdb *redis.Client, channel string, hub *Hub, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	pubsub := rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Wait for the subscription confirmation so startup errors surface here.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Info("frame subscriber started", zap.String("channel", channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := hub.BroadcastFrame([]byte(msg.Payload)); err != nil {
				log.Warn("invalid frame payload", zap.String("channel", channel), zap.Error(err))
			}
		}
	}
}
