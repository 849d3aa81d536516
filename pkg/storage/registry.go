// Package storage holds the in-memory stores behind the bot: the item registry,
// the project directory and the roster seed file.
package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

// ItemRegistry maps chat messages to work items. Items are kept per chat in
// creation order. Sequence numbers are global per kind.
type ItemRegistry struct {
	mu       sync.RWMutex
	items    map[int64][]*workitem.WorkItem
	counters map[workitem.Kind]int
	locks    map[int64]*sync.Mutex
	locksMu  sync.Mutex
}

// NewItemRegistry creates an empty registry.
func NewItemRegistry() *ItemRegistry {
	return &ItemRegistry{
		items:    make(map[int64][]*workitem.WorkItem),
		counters: make(map[workitem.Kind]int),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// NextSeq reserves the next sequence number for kind, starting at 1.
func (r *ItemRegistry) NextSeq(kind workitem.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[kind]++
	return r.counters[kind]
}

// Append registers an item under its chat. The item's card message must be set
// and must not already host another item.
func (r *ItemRegistry) Append(item *workitem.WorkItem) error {
	if item.Card.MessageID == 0 {
		return fmt.Errorf("item %s has no card message", item.ID())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items[item.ChatID] {
		if existing.Card.MessageID == item.Card.MessageID {
			return fmt.Errorf("message %d already hosts %s", item.Card.MessageID, existing.ID())
		}
	}
	r.items[item.ChatID] = append(r.items[item.ChatID], item)
	return nil
}

// Find returns the item hosted by the given message.
func (r *ItemRegistry) Find(chatID, messageID int64) (*workitem.WorkItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items[chatID] {
		if item.Card.MessageID == messageID {
			return item, nil
		}
	}
	return nil, fmt.Errorf("%w: chat %d message %d", workitem.ErrItemNotFound, chatID, messageID)
}

// Remove drops the item hosted by the given message.
func (r *ItemRegistry) Remove(chatID, messageID int64) (*workitem.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.items[chatID]
	for i, item := range list {
		if item.Card.MessageID == messageID {
			r.items[chatID] = append(list[:i:i], list[i+1:]...)
			return item, nil
		}
	}
	return nil, fmt.Errorf("%w: chat %d message %d", workitem.ErrItemNotFound, chatID, messageID)
}

// RemoveChat drops every item of a chat and returns them.
func (r *ItemRegistry) RemoveChat(chatID int64) []*workitem.WorkItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.items[chatID]
	delete(r.items, chatID)
	return removed
}

// List returns a chat's items in creation order. A nil kind filter returns all kinds.
func (r *ItemRegistry) List(chatID int64, kinds ...workitem.Kind) []*workitem.WorkItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*workitem.WorkItem
	for _, item := range r.items[chatID] {
		if len(kinds) == 0 || containsKind(kinds, item.Kind) {
			out = append(out, item)
		}
	}
	return out
}

// Chats returns the chats that have at least one item, sorted.
func (r *ItemRegistry) Chats() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.items))
	for chatID, list := range r.items {
		if len(list) > 0 {
			out = append(out, chatID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Lock serializes mutations within one chat. Call the returned func to release.
func (r *ItemRegistry) Lock(chatID int64) func() {
	r.locksMu.Lock()
	m, ok := r.locks[chatID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[chatID] = m
	}
	r.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

func containsKind(kinds []workitem.Kind, k workitem.Kind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}
