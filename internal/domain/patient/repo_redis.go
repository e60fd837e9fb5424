package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces the patient keys.
const DefaultRedisKeyPrefix = "sandhigata_vata_patients"

// redisRepo stores each record as a hash field (id -> JSON) and keeps save
// order in a sorted set scored by save time.
type redisRepo struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisRepo(client *redis.Client, prefix string) Repository {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &redisRepo{client: client, prefix: prefix, now: time.Now}
}

func (r *redisRepo) recordsKey() string { return r.prefix + ":records" }
func (r *redisRepo) orderKey() string   { return r.prefix + ":order" }

func (r *redisRepo) Save(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode patient %s: %w", rec.ID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.recordsKey(), rec.ID, raw)
		pipe.ZAdd(ctx, r.orderKey(), redis.Z{Score: float64(r.now().UnixMicro()), Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save patient %s: %w", rec.ID, err)
	}
	return nil
}

func (r *redisRepo) Get(ctx context.Context, id string) (*Record, error) {
	raw, err := r.client.HGet(ctx, r.recordsKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}
	return decodeRecord(raw)
}

func (r *redisRepo) List(ctx context.Context) ([]*Record, error) {
	ids, err := r.client.ZRevRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list patient ids: %w", err)
	}
	if len(ids) == 0 {
		return []*Record{}, nil
	}

	vals, err := r.client.HMGet(ctx, r.recordsKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	out := make([]*Record, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// order entry without a record; a concurrent delete won the race
			continue
		}
		rec, err := decodeRecord([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *redisRepo) Delete(ctx context.Context, id string) error {
	return r.DeleteMany(ctx, []string{id})
}

func (r *redisRepo) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.recordsKey(), ids...)
		pipe.ZRem(ctx, r.orderKey(), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete patients: %w", err)
	}
	return nil
}

func (r *redisRepo) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.recordsKey(), r.orderKey()).Err(); err != nil {
		return fmt.Errorf("clear patients: %w", err)
	}
	return nil
}

func (r *redisRepo) Size(ctx context.Context) (int64, error) {
	vals, err := r.client.HVals(ctx, r.recordsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("measure patient storage: %w", err)
	}
	var n int64
	for _, v := range vals {
		n += int64(len(v))
	}
	return n, nil
}
