package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notifications:user:"

// Channel is the pub/sub channel carrying a user's live updates.
func Channel(userID int64) string {
	return fmt.Sprintf("%s%d", channelPrefix, userID)
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// PubSub pushes JSON payloads to per-user Redis channels and streams them
// back to subscribers. Messages published while nobody listens are dropped.
type PubSub struct {
	rdb *redis.Client
}

func NewPubSub(rdb *redis.Client) *PubSub {
	return &PubSub{rdb: rdb}
}

func (p *PubSub) Push(ctx context.Context, recipientID int64, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, Channel(recipientID), data).Err()
}

// Subscribe returns a channel of raw payloads for the user. It is closed when
// ctx ends or the returned close func is called.
func (p *PubSub) Subscribe(ctx context.Context, recipientID int64) (<-chan []byte, func() error, error) {
	sub := p.rdb.Subscribe(ctx, Channel(recipientID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", Channel(recipientID), err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, sub.Close, nil
}

func (p *PubSub) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
