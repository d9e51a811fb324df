package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DefaultConfigFile is the snapshot name used when save/load carry no
// "file_name".
const DefaultConfigFile = "config.boot"

// Memory is an in-process Backend holding a configuration tree, named
// snapshots of it, and named resource sets. Operations are serialized.
//
//   - configure merges the payload (minus "result") under the command node
//   - save / load copy the tree to / from the snapshot named by "file_name"
//   - add / delete insert / remove the "name" entry of the command's set
type Memory struct {
	mu        sync.Mutex
	tree      map[string]interface{}
	snapshots map[string]map[string]interface{}
	sets      map[string]map[string]bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		tree:      make(map[string]interface{}),
		snapshots: make(map[string]map[string]interface{}),
		sets:      make(map[string]map[string]bool),
	}
}

// Exec implements Backend.
func (m *Memory) Exec(ctx context.Context, req Request) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	switch req.Verb {
	case VerbConfigure:
		return m.configure(req), nil
	case VerbSave:
		name := fileName(req.Data)
		m.snapshots[name] = copyTree(m.tree)
		return name, nil
	case VerbLoad:
		name := fileName(req.Data)
		snap, ok := m.snapshots[name]
		if !ok {
			return nil, fmt.Errorf("no saved configuration %q", name)
		}
		m.tree = copyTree(snap)
		return name, nil
	case VerbAdd:
		name, err := itemName(req)
		if err != nil {
			return nil, err
		}
		set := m.sets[req.Command]
		if set == nil {
			set = make(map[string]bool)
			m.sets[req.Command] = set
		}
		if set[name] {
			return nil, fmt.Errorf("%s %q already exists", req.Command, name)
		}
		set[name] = true
		return name, nil
	case VerbDelete:
		name, err := itemName(req)
		if err != nil {
			return nil, err
		}
		if !m.sets[req.Command][name] {
			return nil, fmt.Errorf("%s %q not found", req.Command, name)
		}
		delete(m.sets[req.Command], name)
		return name, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedVerb, req.Verb)
}

func (m *Memory) configure(req Request) map[string]interface{} {
	node, _ := m.tree[req.Command].(map[string]interface{})
	if node == nil {
		node = make(map[string]interface{})
		m.tree[req.Command] = node
	}
	for k, v := range req.Data {
		if k == "result" {
			continue
		}
		node[k] = copyValue(v)
	}
	return copyTree(node)
}

// Tree returns a copy of the running configuration.
func (m *Memory) Tree() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyTree(m.tree)
}

// Items returns the sorted entries of the command's resource set.
func (m *Memory) Items(command string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]string, 0, len(m.sets[command]))
	for name := range m.sets[command] {
		items = append(items, name)
	}
	sort.Strings(items)
	return items
}

func fileName(data map[string]interface{}) string {
	if name, ok := data["file_name"].(string); ok && name != "" {
		return name
	}
	return DefaultConfigFile
}

func itemName(req Request) (string, error) {
	name, ok := req.Data["name"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("%s requires a name", req.Command)
	}
	return name, nil
}

func copyTree(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyTree(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	}
	return v
}
