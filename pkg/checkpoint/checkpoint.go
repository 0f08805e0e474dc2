package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const dateLayout = "2006-01-02"

// Store remembers the end date of the last fully persisted sub-window for a
// (query, sites) key.
type Store interface {
	Load(ctx context.Context, key string) (time.Time, bool, error)
	Save(ctx context.Context, key string, through time.Time) error
	Close() error
}

// Key is stable for the same query and site set regardless of site order.
func Key(query string, sites []string) string {
	sorted := append([]string(nil), sites...)
	sort.Strings(sorted)
	name := strings.ToLower(strings.TrimSpace(query)) + "|" + strings.Join(sorted, ",")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

type Memory struct {
	mu   sync.Mutex
	days map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{days: make(map[string]time.Time)}
}

func (m *Memory) Load(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.days[key]
	return t, ok, nil
}

func (m *Memory) Save(_ context.Context, key string, through time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[key] = through
	return nil
}

func (m *Memory) Close() error { return nil }

// File keeps every key in one JSON object, rewritten on each save.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries := map[string]string{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", f.path, err)
	}
	return entries, nil
}

func (f *File) Load(_ context.Context, key string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return time.Time{}, false, err
	}
	raw, ok := entries[key]
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("bad checkpoint %q: %w", raw, err)
	}
	return t, true, nil
}

func (f *File) Save(_ context.Context, key string, through time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return err
	}
	entries[key] = through.Format(dateLayout)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *File) Close() error { return nil }

type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to url, falling back to treating it as a bare address.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisClient(client), nil
}

func NewRedisClient(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "newsreap:checkpoint:"}
}

func (r *Redis) Load(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("bad checkpoint %q: %w", raw, err)
	}
	return t, true, nil
}

func (r *Redis) Save(ctx context.Context, key string, through time.Time) error {
	return r.client.Set(ctx, r.prefix+key, through.Format(dateLayout), 0).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
