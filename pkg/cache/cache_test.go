package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/kinetic/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = (%q, %v, %v), want a miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}

	counters := &observability.Counters{}
	observability.SetCacheHooks(counters)
	defer observability.Reset()

	key := NewDefaultKeyer().ArtifactKey("abc", ArtifactKeyOpts{Format: "svg"})
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Fatal("empty cache hit")
	}
	if err := c.Set(ctx, key, []byte("<svg/>"), 0); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "<svg/>" {
		t.Fatalf("Get = (%q, %v, %v)", data, hit, err)
	}

	v := counters.Values()
	if v.CacheHits != 1 || v.CacheMisses != 1 || v.CacheBytes != 6 {
		t.Errorf("cache counters = %+v", v)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("hit after Delete")
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "play:x", []byte("1"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "play:x"); hit {
		t.Error("expired entry returned")
	}
	if _, err := os.Stat(c.path("play:x")); !os.IsNotExist(err) {
		t.Error("expired entry not removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Clear = (%d, %v), want 3", n, err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entry survived Clear")
	}
}

func TestHash(t *testing.T) {
	if Hash([]byte("hello")) != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if Hash([]byte("hello")) == Hash([]byte("world")) {
		t.Error("different inputs should produce different hashes")
	}
	if n := len(Hash([]byte("hello"))); n != 64 {
		t.Errorf("Hash length = %d, want 64", n)
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	tests := []struct {
		name string
		a, b string
	}{
		{"format", k.ArtifactKey("h", ArtifactKeyOpts{Format: "svg"}), k.ArtifactKey("h", ArtifactKeyOpts{Format: "dot"})},
		{"frame", k.ArtifactKey("h", ArtifactKeyOpts{Format: "svg"}), k.ArtifactKey("h", ArtifactKeyOpts{Format: "svg", Frame: 3})},
		{"scene", k.ArtifactKey("h1", ArtifactKeyOpts{}), k.ArtifactKey("h2", ArtifactKeyOpts{})},
		{"frames", k.PlayKey("h", PlayKeyOpts{Frames: 10}), k.PlayKey("h", PlayKeyOpts{Frames: 20})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a == tt.b {
				t.Errorf("keys collide: %s", tt.a)
			}
		})
	}

	if got := k.PlayKey("h", PlayKeyOpts{}); !strings.HasPrefix(got, "play:") {
		t.Errorf("PlayKey = %s, want play: prefix", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "kinetic:")
	key := scoped.ArtifactKey("h", ArtifactKeyOpts{Format: "svg"})
	if !strings.HasPrefix(key, "kinetic:artifact:") {
		t.Errorf("scoped key = %s", key)
	}
	if keyType(key) != KindArtifact {
		t.Errorf("keyType(%s) = %s", key, keyType(key))
	}
}

func TestRetryWithBackoff(t *testing.T) {
	retryDelay = time.Millisecond
	defer func() { retryDelay = 100 * time.Millisecond }()
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry: err=%v calls=%d, want nil and 2", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return ErrNetwork
	})
	if err != ErrNetwork || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if !IsRetryable(err) || calls != 3 {
		t.Errorf("exhausted: err=%v calls=%d, want retryable after 3", err, calls)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := RetryWithBackoff(cctx, func() error { return Retryable(ErrNetwork) }); err != context.Canceled {
		t.Errorf("canceled: err=%v", err)
	}
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), RedisConfig{URL: "http://localhost"}); err == nil {
		t.Error("non-redis URL accepted")
	}
}
