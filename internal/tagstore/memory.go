package tagstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an ephemeral Store for local runs and tests. Each object's tags
// are independent, so a sync.Map keyed by object ID serves concurrent
// writers from parallel branches without a global lock.
type Memory struct {
	objects sync.Map // Key: object ID, Value: map[string]string
}

// NewMemory creates an empty in-memory tag store.
func NewMemory() *Memory {
	return &Memory{}
}

// Tags implements Store.
func (m *Memory) Tags(ctx context.Context, id string) (map[string]string, error) {
	v, ok := m.objects.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyTags(v.(map[string]string)), nil
}

// SetTags implements Store.
func (m *Memory) SetTags(ctx context.Context, id string, tags map[string]string) error {
	m.objects.Store(id, copyTags(tags))
	return nil
}

// List implements Store.
func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	m.objects.Range(func(key, _ any) bool {
		id := key.(string)
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
		return true
	})
	sort.Strings(ids)
	return ids, nil
}
