package cart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Storage is the durable origin of the cart: an origin-scoped persistent
// key/value store. A missing namespace reads as the empty string.
type Storage interface {
	ReadRaw(ctx context.Context, namespace string) (string, error)
	WriteRaw(ctx context.Context, namespace, data string) error
}

// MemoryStorage is a volatile Storage for tests and degraded sessions.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

// ReadRaw implements Storage.
func (s *MemoryStorage) ReadRaw(_ context.Context, namespace string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[namespace], nil
}

// WriteRaw implements Storage.
func (s *MemoryStorage) WriteRaw(_ context.Context, namespace, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[namespace] = data
	return nil
}

// FileStorage persists namespaces as files under a directory, the
// local-storage analog for a machine-local client.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

// ReadRaw implements Storage.
func (s *FileStorage) ReadRaw(_ context.Context, namespace string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, namespace+".json"))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", namespace, err)
	}
	return string(data), nil
}

// WriteRaw implements Storage. The write is atomic via rename so a crash
// mid-write never corrupts the stored cart.
func (s *FileStorage) WriteRaw(_ context.Context, namespace, data string) error {
	target := filepath.Join(s.dir, namespace+".json")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", namespace, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename %s: %w", namespace, err)
	}
	return nil
}

// RedisStorage persists namespaces as Redis keys, for clients that share a
// cart across devices or restarts.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage creates a Redis-backed storage. Keys are stored under
// "cart:<namespace>".
func NewRedisStorage(client *redis.Client) *RedisStorage {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStorage{client: client, prefix: "cart:"}
}

// ReadRaw implements Storage.
func (s *RedisStorage) ReadRaw(ctx context.Context, namespace string) (string, error) {
	data, err := s.client.Get(ctx, s.prefix+namespace).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// WriteRaw implements Storage.
func (s *RedisStorage) WriteRaw(ctx context.Context, namespace, data string) error {
	if err := s.client.Set(ctx, s.prefix+namespace, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
