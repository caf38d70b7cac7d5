package hub

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DirtyIndexConfig configures Redis access for the dirty-vertex index.
type DirtyIndexConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	BlockTimeout time.Duration
}

// DirtyVertex names one process vertex that changed since a caller's last
// poll.
type DirtyVertex struct {
	Host      string    `json:"host"`
	VertexID  string    `json:"vertex_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DirtyIndex is a Redis sorted-set index of recently-changed process
// vertices, adapted from the teacher's internal/vertexstate.RedisStore
// (WriteRows/FetchDirtySince/dirty ZSET pattern) — repurposed here from
// IOA-count tracking to plain process-state-change tracking so an external
// diagnostic caller can poll cheaply instead of re-running diag against
// every live process on every hub tick.
type DirtyIndex struct {
	client *redis.Client
	prefix string
}

// NewDirtyIndex connects to Redis and verifies the connection with Ping,
// same startup discipline as vertexstate.NewRedisStore.
func NewDirtyIndex(cfg DirtyIndexConfig) (*DirtyIndex, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "ark:dirty"
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BlockTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis dirty-index: %w", err)
	}

	return &DirtyIndex{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix)}, nil
}

// MarkDirty records that vertexID under host changed just now.
func (d *DirtyIndex) MarkDirty(host, vertexID string) {
	ctx := context.Background()
	member := encodeMember(host, vertexID)
	if err := d.client.ZAdd(ctx, d.setKey(), redis.Z{Score: float64(time.Now().Unix()), Member: member}).Err(); err != nil {
		return
	}
}

// FetchDirtySince returns every vertex touched at or after since, limited
// to limit results, optionally filtered to one host.
func (d *DirtyIndex) FetchDirtySince(ctx context.Context, host string, since time.Time, limit int64) ([]DirtyVertex, error) {
	if limit <= 0 {
		limit = 1000
	}
	members, err := d.client.ZRangeByScoreWithScores(ctx, d.setKey(), &redis.ZRangeBy{
		Min:   fmt.Sprintf("%d", since.Unix()),
		Max:   "+inf",
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read dirty vertex members: %w", err)
	}

	out := make([]DirtyVertex, 0, len(members))
	for _, z := range members {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		h, vertex, ok := decodeMember(member)
		if !ok || (host != "" && h != host) {
			continue
		}
		out = append(out, DirtyVertex{
			Host:      h,
			VertexID:  vertex,
			UpdatedAt: time.Unix(int64(z.Score), 0).UTC(),
		})
	}
	return out, nil
}

// Close releases the Redis client.
func (d *DirtyIndex) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *DirtyIndex) setKey() string {
	return d.prefix + ":vertices"
}

func encodeMember(host, vertex string) string {
	return host + "\x1f" + vertex
}

func decodeMember(member string) (host, vertex string, ok bool) {
	parts := strings.SplitN(member, "\x1f", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
