package document

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nestgraph/nestgraph/pkg/errors"
)

// DefaultRedisPrefix namespaces nestgraph keys in a shared Redis instance.
const DefaultRedisPrefix = "nestgraph:doc:"

// redisIndexSuffix names the set holding all stored document names.
const redisIndexSuffix = "_index"

// RedisStore persists documents as JSON strings in Redis, with a set
// tracking the stored names so List never scans the keyspace.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
// An empty prefix falls back to DefaultRedisPrefix.
func NewRedisStore(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping redis at %s", addr)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

// Load retrieves a document by name.
func (s *RedisStore) Load(ctx context.Context, name string) (*Document, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.ErrCodeDocumentNotFound, "document %q does not exist", name)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load document %q", name)
	}
	return Unmarshal(data)
}

// Save stores the document and registers its name in the index set.
func (s *RedisStore) Save(ctx context.Context, d *Document) error {
	if d.Name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "document name is required")
	}
	d.UpdatedAt = time.Now().UTC()
	data, err := Marshal(d)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(d.Name), data, 0)
	pipe.SAdd(ctx, s.indexKey(), d.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save document %q", d.Name)
	}
	return nil
}

// List returns all stored document names, sorted.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list documents")
	}
	// SMembers ordering is unspecified.
	sort.Strings(names)
	return names, nil
}

// Delete removes a document and its index entry.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(name))
	pipe.SRem(ctx, s.indexKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete document %q", name)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(name string) string { return s.prefix + name }
func (s *RedisStore) indexKey() string       { return s.prefix + redisIndexSuffix }

var _ Store = (*RedisStore)(nil)
