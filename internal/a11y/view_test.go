package a11y

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/brennhill/fallbackweave/internal/transport"
)

type fakeTransport struct {
	nodes []Node
	calls int
}

func (f *fakeTransport) Attach(context.Context, transport.Target) error { return nil }
func (f *fakeTransport) Detach(context.Context, transport.Target) error { return nil }
func (f *fakeTransport) On(transport.Target, string, transport.EventHandler) {}
func (f *fakeTransport) Send(ctx context.Context, target transport.Target, method string, params any) (json.RawMessage, error) {
	f.calls++
	return json.Marshal(f.nodes)
}

func TestFindByRoleExactName(t *testing.T) {
	ft := &fakeTransport{nodes: []Node{
		{Role: "button", Name: "Sign in"},
		{Role: "button", Name: "Sign up"},
	}}
	v := New(ft, time.Minute)

	matches, err := v.FindByRole(context.Background(), "t1", RoleQuery{Role: "Button", Name: "Sign in", Exact: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("want 1 match, got %d", len(matches))
	}
	if matches[0].Confidence != 0.95 {
		t.Errorf("want confidence 0.95 for role+name, got %v", matches[0].Confidence)
	}
}

func TestFindByRoleRoleOnly(t *testing.T) {
	ft := &fakeTransport{nodes: []Node{{Role: "button"}}}
	v := New(ft, time.Minute)

	matches, err := v.FindByRole(context.Background(), "t1", RoleQuery{Role: "button"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Confidence != 0.85 {
		t.Fatalf("want role-only confidence 0.85, got %+v", matches)
	}
}

func TestHiddenNodesExcluded(t *testing.T) {
	ft := &fakeTransport{nodes: []Node{{Role: "button", Name: "X", Hidden: true}}}
	v := New(ft, time.Minute)
	matches, err := v.FindByRole(context.Background(), "t1", RoleQuery{Role: "button"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected hidden node excluded, got %d matches", len(matches))
	}
}

func TestCacheServedWithinTTL(t *testing.T) {
	ft := &fakeTransport{nodes: []Node{{Role: "button", Name: "A"}}}
	v := New(ft, time.Minute)

	if _, err := v.FindByRole(context.Background(), "t1", RoleQuery{Role: "button"}); err != nil {
		t.Fatal(err)
	}
	if _, err := v.FindByRole(context.Background(), "t1", RoleQuery{Role: "button"}); err != nil {
		t.Fatal(err)
	}
	if ft.calls != 1 {
		t.Errorf("expected 1 fetch within TTL, got %d", ft.calls)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	ft := &fakeTransport{nodes: []Node{{Role: "button", Name: "A"}}}
	v := New(ft, time.Minute)
	ctx := context.Background()
	if _, err := v.FindByRole(ctx, "t1", RoleQuery{Role: "button"}); err != nil {
		t.Fatal(err)
	}
	v.Invalidate("t1")
	if _, err := v.FindByRole(ctx, "t1", RoleQuery{Role: "button"}); err != nil {
		t.Fatal(err)
	}
	if ft.calls != 2 {
		t.Errorf("expected 2 fetches after invalidate, got %d", ft.calls)
	}
}
