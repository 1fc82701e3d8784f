package cache

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const fieldsURL = "https://acme.atlassian.net/rest/api/2/field"

func TestResponseCache_GetSet(t *testing.T) {
	c := New(5*time.Second, 100)

	resp := &CachedResponse{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`[{"id":"summary"}]`),
	}

	key := MakeKey("GET", fieldsURL)
	c.Set(key, resp)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", got.StatusCode)
	}
	if string(got.Body) != `[{"id":"summary"}]` {
		t.Errorf("unexpected body: %s", got.Body)
	}
	if got.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content-type: %s", got.Headers.Get("Content-Type"))
	}
}

func TestResponseCache_Miss(t *testing.T) {
	c := New(5*time.Second, 100)

	if _, ok := c.Get("nonexistent"); ok {
		t.Error("expected cache miss for nonexistent key")
	}
}

func TestResponseCache_TTLExpiration(t *testing.T) {
	c := New(time.Minute, 100)
	now := time.Now()
	c.now = func() time.Time { return now }

	key := MakeKey("GET", fieldsURL)
	c.Set(key, &CachedResponse{StatusCode: http.StatusOK, Body: []byte("data")})

	if _, ok := c.Get(key); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(key); ok {
		t.Error("expected cache miss after TTL expiration")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be removed, got %d entries", c.Len())
	}
}

func TestResponseCache_MaxEntries(t *testing.T) {
	c := New(5*time.Second, 3)
	resp := &CachedResponse{StatusCode: http.StatusOK, Body: []byte("data")}

	c.Set("key1", resp)
	c.Set("key2", resp)
	c.Set("key3", resp)
	c.Set("key4", resp)

	if _, ok := c.Get("key1"); ok {
		t.Error("expected key1 to be evicted (oldest entry)")
	}
	for _, k := range []string{"key2", "key3", "key4"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %s to be in cache", k)
		}
	}
}

func TestResponseCache_OverwriteExistingKey(t *testing.T) {
	c := New(5*time.Second, 100)

	c.Set("key", &CachedResponse{StatusCode: http.StatusOK, Body: []byte("v1")})
	c.Set("key", &CachedResponse{StatusCode: http.StatusOK, Body: []byte("v2")})

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got.Body) != "v2" {
		t.Errorf("expected updated body v2, got %s", got.Body)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestMakeKey(t *testing.T) {
	key := MakeKey("GET", fieldsURL)
	expected := "GET:" + fieldsURL
	if key != expected {
		t.Errorf("expected key %q, got %q", expected, key)
	}
}

// --- GetOrFill ---

func TestGetOrFill_CachesSuccess(t *testing.T) {
	c := New(5*time.Second, 10)
	var calls int

	fill := func() (*CachedResponse, error) {
		calls++
		return &CachedResponse{StatusCode: http.StatusOK, Body: []byte("[]")}, nil
	}

	_, hit, err := c.GetOrFill("k", fill)
	if err != nil || hit {
		t.Fatalf("expected miss without error, got hit=%v err=%v", hit, err)
	}
	_, hit, err = c.GetOrFill("k", fill)
	if err != nil || !hit {
		t.Fatalf("expected hit without error, got hit=%v err=%v", hit, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 fill, got %d", calls)
	}
}

func TestGetOrFill_DoesNotCacheErrorsOrFailures(t *testing.T) {
	c := New(5*time.Second, 10)

	if _, _, err := c.GetOrFill("k", func() (*CachedResponse, error) {
		return nil, errors.New("boom")
	}); err == nil {
		t.Fatal("expected fill error to be returned")
	}

	resp, _, err := c.GetOrFill("k", func() (*CachedResponse, error) {
		return &CachedResponse{StatusCode: http.StatusServiceUnavailable}, nil
	})
	if err != nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 passthrough, got %v %v", resp, err)
	}
	if c.Len() != 0 {
		t.Errorf("expected non-2xx not to be cached, got %d entries", c.Len())
	}
}

func TestGetOrFill_ConcurrentMissesShareOneFill(t *testing.T) {
	c := New(5*time.Second, 10)
	var calls atomic.Int32
	release := make(chan struct{})

	fill := func() (*CachedResponse, error) {
		calls.Add(1)
		<-release
		return &CachedResponse{StatusCode: http.StatusOK, Body: []byte("[]")}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.GetOrFill("k", fill); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n < 1 || n > 2 {
		t.Errorf("expected concurrent misses to share a fill, got %d fills", n)
	}
}

// --- Concurrency ---

func TestResponseCache_ThreadSafety(t *testing.T) {
	c := New(5*time.Second, 50)
	resp := &CachedResponse{StatusCode: http.StatusOK, Body: []byte("data")}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Set(MakeKey("GET", fieldsURL+"?n="+string(rune('A'+n%60))), resp)
		}(i)
		go func(n int) {
			defer wg.Done()
			c.Get(MakeKey("GET", fieldsURL+"?n="+string(rune('A'+n%60))))
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("cache exceeded maxEntries: got %d", c.Len())
	}
}
