package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/views"
)

// StartRedisSubscriber escuta o canal Redis Pub/Sub do bet-indexer e repassa
// as atualizações para os clientes WebSocket via Hub.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var upd views.BetUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					hub.log.Warn("ws subscriber unmarshal", zap.Error(err))
					continue
				}
				hub.Broadcast(upd)
			}
		}
	}()
}
