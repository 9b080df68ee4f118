package cache

import (
	"testing"
	"time"
)

func TestSetGetAndExpiry(t *testing.T) {
	c := New(true)
	etag := c.Set("games/abc", []byte(`{"ok":true}`), 50*time.Millisecond)
	if etag == "" {
		t.Fatalf("Set must return an etag")
	}

	data, got, ok := c.Get("games/abc")
	if !ok || got != etag || string(data) != `{"ok":true}` {
		t.Fatalf("Get = %q/%q/%v", data, got, ok)
	}

	time.Sleep(60 * time.Millisecond)
	if _, _, ok := c.Get("games/abc"); ok {
		t.Fatalf("expired entry must miss")
	}
}

func TestDisabledCacheIsNoOp(t *testing.T) {
	c := New(false)
	etag := c.Set("k", []byte("v"), time.Hour)
	if etag == "" {
		t.Fatalf("disabled cache still computes etags")
	}
	if _, _, ok := c.Get("k"); ok {
		t.Fatalf("disabled cache must never hit")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New(true)
	c.Set("games/a", []byte("1"), time.Hour)
	c.Set("games/b", []byte("2"), time.Hour)
	c.Set("compat/a", []byte("3"), time.Hour)

	if n := c.InvalidatePrefix("games/"); n != 2 {
		t.Fatalf("invalidated %d entries, want 2", n)
	}
	if _, _, ok := c.Get("games/a"); ok {
		t.Fatalf("invalidated entry must miss")
	}
	if _, _, ok := c.Get("compat/a"); !ok {
		t.Fatalf("unrelated prefix must survive")
	}
}

func TestETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("payload"))
	if !CheckETagMatch(etag, etag) {
		t.Fatalf("identical etags must match")
	}
	if !CheckETagMatch("*", etag) {
		t.Fatalf("wildcard must match")
	}
	if CheckETagMatch("", etag) || CheckETagMatch(`W/"other"`, etag) {
		t.Fatalf("mismatched etags must not match")
	}
}
