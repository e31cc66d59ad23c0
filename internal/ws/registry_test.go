package ws

import "testing"

type fakeConn struct {
	id     string
	events []string
}

func (f *fakeConn) ID() string                       { return f.id }
func (f *fakeConn) Emit(event string, _ ...interface{}) { f.events = append(f.events, event) }

func (f *fakeConn) count(event string) int {
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

func TestRegistryBindLookup(t *testing.T) {
	rg := NewRegistry()
	c := &fakeConn{id: "s1"}

	rg.Bind("u1", c)
	got, ok := rg.Lookup("u1")
	if !ok || got.ID() != "s1" {
		t.Fatal("bound participant should resolve to its connection")
	}

	// binding is idempotent
	rg.Bind("u1", c)
	if got, ok := rg.Lookup("u1"); !ok || got.ID() != "s1" {
		t.Fatal("rebinding the same connection should change nothing")
	}
}

func TestRegistryRebindReplacesConnection(t *testing.T) {
	rg := NewRegistry()
	old := &fakeConn{id: "s1"}
	fresh := &fakeConn{id: "s2"}

	rg.Bind("u1", old)
	rg.Bind("u1", fresh)

	got, ok := rg.Lookup("u1")
	if !ok || got.ID() != "s2" {
		t.Fatal("reconnect should replace the live connection")
	}

	// the stale handle no longer resolves to anyone
	if id := rg.Unbind(old); id != "" {
		t.Fatalf("stale connection should be unknown, resolved %q", id)
	}
	if _, ok := rg.Lookup("u1"); !ok {
		t.Fatal("unbinding a stale handle must not drop the fresh binding")
	}
}

func TestRegistryUnbindResolvesByHandle(t *testing.T) {
	rg := NewRegistry()
	c := &fakeConn{id: "s1"}
	rg.Bind("u1", c)

	if id := rg.Unbind(c); id != "u1" {
		t.Fatalf("expected unbind to resolve u1, got %q", id)
	}
	if _, ok := rg.Lookup("u1"); ok {
		t.Fatal("participant should be unbound")
	}

	// unbinding an unknown handle is a no-op
	if id := rg.Unbind(&fakeConn{id: "s9"}); id != "" {
		t.Fatalf("expected no-op, resolved %q", id)
	}
}

func TestRegistryConnectionTakeover(t *testing.T) {
	rg := NewRegistry()
	c := &fakeConn{id: "s1"}
	rg.Bind("u1", c)
	rg.Bind("u2", c)

	if _, ok := rg.Lookup("u1"); ok {
		t.Fatal("a connection binds one identity at a time")
	}
	if got, ok := rg.Lookup("u2"); !ok || got.ID() != "s1" {
		t.Fatal("latest identity should own the connection")
	}
}
