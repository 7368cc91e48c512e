package opup

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// RedisPublisher pushes every transaction outcome onto a Redis pub/sub
// channel so a separate process (a dashboard, a floor-monitoring tool)
// can observe a programming run without sharing the serial link.
// Attaching one to a Session is optional and never required for
// correctness: no interleaving partner shares the bus, and the
// publisher never talks back to the device.
type RedisPublisher struct {
	client  *goredis.Client
	ctx     context.Context
	channel string
}

// NewRedisPublisher connects to addr and returns a publisher that will
// publish transaction outcomes to channel.
func NewRedisPublisher(addr, password string, db int, channel string) (*RedisPublisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return &RedisPublisher{client: client, ctx: ctx, channel: channel}, nil
}

// PublishTransaction publishes "<opcode>:ok" or "<opcode>:<error>".
func (r *RedisPublisher) PublishTransaction(opcode Opcode, err error) {
	if err != nil {
		r.client.Publish(r.ctx, r.channel, fmt.Sprintf("0x%02x:%v", byte(opcode), err))
		return
	}
	r.client.Publish(r.ctx, r.channel, fmt.Sprintf("0x%02x:ok", byte(opcode)))
}

// Close releases the Redis connection.
func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
