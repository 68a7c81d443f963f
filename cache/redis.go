package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix    = "offcache:"
	redisNamespaceSet = "offcache:namespaces"
)

// redisEntry is the stored JSON form of an Entry.
type redisEntry struct {
	StoredAt int64  `json:"t"`
	Value    []byte `json:"v"`
}

// RedisStorage keeps each namespace in a Redis hash, with the set of
// namespace names tracked in a separate set key. Suitable for sharing one
// cache between several proxy instances.
type RedisStorage struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisStorage(address, password string, db int) *RedisStorage {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return &RedisStorage{client: client, ctx: context.Background()}
}

func (r *RedisStorage) Open(name string) (Namespace, error) {
	if err := r.client.SAdd(r.ctx, redisNamespaceSet, name).Err(); err != nil {
		return nil, err
	}
	return &redisNamespace{storage: r, hashKey: redisKeyPrefix + name}, nil
}

func (r *RedisStorage) Names() ([]string, error) {
	return r.client.SMembers(r.ctx, redisNamespaceSet).Result()
}

func (r *RedisStorage) Delete(name string) error {
	if err := r.client.Del(r.ctx, redisKeyPrefix+name).Err(); err != nil {
		return err
	}
	return r.client.SRem(r.ctx, redisNamespaceSet, name).Err()
}

type redisNamespace struct {
	storage *RedisStorage
	hashKey string
}

func (n *redisNamespace) Get(key string) (Entry, bool, error) {
	data, err := n.storage.client.HGet(n.storage.ctx, n.hashKey, key).Result()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var stored redisEntry
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return Entry{}, false, err
	}
	return Entry{Value: stored.Value, StoredAt: time.Unix(stored.StoredAt, 0)}, true, nil
}

func (n *redisNamespace) Put(key string, value []byte) error {
	data, err := json.Marshal(redisEntry{StoredAt: time.Now().Unix(), Value: value})
	if err != nil {
		return err
	}
	return n.storage.client.HSet(n.storage.ctx, n.hashKey, key, data).Err()
}

func (n *redisNamespace) Delete(key string) error {
	return n.storage.client.HDel(n.storage.ctx, n.hashKey, key).Err()
}

func (n *redisNamespace) Keys() ([]string, error) {
	return n.storage.client.HKeys(n.storage.ctx, n.hashKey).Result()
}
