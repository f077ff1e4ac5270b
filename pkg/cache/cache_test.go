package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 1*time.Second)
	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected expired key to return false")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped on read, len=%d", c.Len())
	}
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 1*time.Second)
	c.Delete("key1")
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set("org:ORG001", "Acme", 1*time.Second)
	c.Set("org:ORG002", "Globex", 1*time.Second)
	c.Set("hr:HR001-ORG001", "h1", 1*time.Second)
	c.Invalidate("org:")
	_, ok1 := c.Get("org:ORG001")
	_, ok2 := c.Get("org:ORG002")
	_, ok3 := c.Get("hr:HR001-ORG001")
	if ok1 || ok2 {
		t.Fatalf("expected org keys to be invalidated")
	}
	if !ok3 {
		t.Fatalf("expected hr:HR001-ORG001 to still exist")
	}
}
