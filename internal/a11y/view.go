// Package a11y maintains a cached semantic accessibility tree per
// target and answers role/name/text/label/description queries
// (spec.md §4.2).
package a11y

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/brennhill/fallbackweave/internal/transport"
)

// Node is one accessibility-tree node.
type Node struct {
	NodeRef     string // backend node reference the transport needs for interaction
	Role        string
	Name        string
	Description string
	Hidden      bool
	Level       int
	States      map[string]bool
}

// Match is one query result.
type Match struct {
	Node       Node
	Confidence float64
}

// Query parameters for FindByRole.
type RoleQuery struct {
	Role   string
	Name   string
	Exact  bool
	Regex  bool
	States map[string]bool
	Level  int
}

// View is a per-target cached accessibility tree.
type View struct {
	transport transport.Transport
	ttl       time.Duration

	mu        sync.RWMutex
	cache     map[transport.Target]cacheEntry
}

type cacheEntry struct {
	nodes     []Node
	fetchedAt time.Time
}

// DefaultTTL matches spec.md §4.2 ("default 1 s").
const DefaultTTL = time.Second

// New builds a View with the given TTL (0 means DefaultTTL).
func New(t transport.Transport, ttl time.Duration) *View {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &View{transport: t, ttl: ttl, cache: make(map[transport.Target]cacheEntry)}
}

// Refresh forces a cache miss and re-fetches the tree for target.
func (v *View) Refresh(ctx context.Context, target transport.Target) error {
	nodes, err := v.fetch(ctx, target)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.cache[target] = cacheEntry{nodes: nodes, fetchedAt: time.Now()}
	v.mu.Unlock()
	return nil
}

// Invalidate drops the cached tree for target immediately.
func (v *View) Invalidate(target transport.Target) {
	v.mu.Lock()
	delete(v.cache, target)
	v.mu.Unlock()
}

func (v *View) nodes(ctx context.Context, target transport.Target) ([]Node, error) {
	v.mu.RLock()
	entry, ok := v.cache[target]
	v.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < v.ttl {
		return entry.nodes, nil
	}
	if err := v.Refresh(ctx, target); err != nil {
		// Serve stale data on a refresh failure rather than erroring every caller.
		if ok {
			return entry.nodes, nil
		}
		return nil, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cache[target].nodes, nil
}

func (v *View) fetch(ctx context.Context, target transport.Target) ([]Node, error) {
	raw, err := v.transport.Send(ctx, target, "accessibility.tree", nil)
	if err != nil {
		return nil, err
	}
	return parseTree(raw), nil
}

// parseTree decodes the transport's raw accessibility-tree payload into
// flat Nodes. The wire shape is whatever the transport returns (spec.md
// §6: "no specific wire format is mandated"); this accepts either a
// bare array of nodes or an object with a "nodes" field.
func parseTree(raw json.RawMessage) []Node {
	var direct []Node
	if json.Unmarshal(raw, &direct) == nil && len(direct) > 0 {
		return direct
	}
	var wrapped struct {
		Nodes []Node `json:"nodes"`
	}
	if json.Unmarshal(raw, &wrapped) == nil {
		return wrapped.Nodes
	}
	return nil
}

func matchesName(nodeName, want string, exact, useRegex bool) bool {
	if want == "" {
		return true
	}
	if useRegex {
		re, err := regexp.Compile(want)
		if err != nil {
			return false
		}
		return re.MatchString(nodeName)
	}
	if exact {
		return nodeName == want
	}
	return strings.Contains(strings.ToLower(nodeName), strings.ToLower(want))
}

// FindByRole matches nodes by role (case-insensitive exact) and
// optionally by name, states and level (spec.md §4.2).
func (v *View) FindByRole(ctx context.Context, target transport.Target, q RoleQuery) ([]Match, error) {
	nodes, err := v.nodes(ctx, target)
	if err != nil {
		return nil, err
	}

	var out []Match
	for _, n := range nodes {
		if n.Hidden {
			continue
		}
		if !strings.EqualFold(n.Role, q.Role) {
			continue
		}
		if q.Level != 0 && n.Level != q.Level {
			continue
		}
		if !statesMatch(n.States, q.States) {
			continue
		}
		if q.Name != "" && !matchesName(n.Name, q.Name, q.Exact, q.Regex) {
			continue
		}
		conf := 0.85
		if q.Name != "" {
			conf = 0.95
		}
		out = append(out, Match{Node: n, Confidence: conf})
	}
	return out, nil
}

func statesMatch(have, want map[string]bool) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// FindByLabel matches accessible names treated as form labels.
func (v *View) FindByLabel(ctx context.Context, target transport.Target, label string, exact bool) ([]Match, error) {
	return v.findByName(ctx, target, label, exact)
}

// FindByText matches accessible names treated as visible text.
func (v *View) FindByText(ctx context.Context, target transport.Target, text string, exact bool) ([]Match, error) {
	return v.findByName(ctx, target, text, exact)
}

// FindByDescription matches the node's description field.
func (v *View) FindByDescription(ctx context.Context, target transport.Target, desc string, exact bool) ([]Match, error) {
	nodes, err := v.nodes(ctx, target)
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, n := range nodes {
		if n.Hidden {
			continue
		}
		if matchesName(n.Description, desc, exact, false) {
			out = append(out, Match{Node: n, Confidence: 0.85})
		}
	}
	return out, nil
}

func (v *View) findByName(ctx context.Context, target transport.Target, want string, exact bool) ([]Match, error) {
	nodes, err := v.nodes(ctx, target)
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, n := range nodes {
		if n.Hidden {
			continue
		}
		if matchesName(n.Name, want, exact, false) {
			conf := 0.95
			if n.Role == "" {
				conf = 0.90
			}
			out = append(out, Match{Node: n, Confidence: conf})
		}
	}
	return out, nil
}
