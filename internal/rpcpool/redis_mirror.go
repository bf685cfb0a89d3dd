package rpcpool

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v7"
)

// redisMirror is the optional RedisMirror implementation backing
// dex.redis_addr. It is purely additive: dex-proxy never reads its own
// leader state back from Redis, it only publishes so a hot-standby
// instance can short-circuit its own poll.
type redisMirror struct {
	client *redis.Client
	key    string
}

// NewRedisMirror connects to addr and returns a RedisMirror that writes the
// current leader name/checkpoint under key.
func NewRedisMirror(addr, key string) RedisMirror {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &redisMirror{client: client, key: key}
}

func (m *redisMirror) SetLeader(ctx context.Context, name string, checkpoint uint64) error {
	pipe := m.client.TxPipeline()
	pipe.HSet(m.key, "name", name)
	pipe.HSet(m.key, "checkpoint", strconv.FormatUint(checkpoint, 10))
	_, err := pipe.Exec()
	return err
}
