package workflow

import (
	"context"
	"fmt"
	"sync"

	"qcflow/internal/domain/quality"
)

// issueLocks hands out one exclusive slot per issue id. Waiting honors ctx.
type issueLocks struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newIssueLocks() *issueLocks {
	return &issueLocks{slots: make(map[string]*lockSlot)}
}

func (l *issueLocks) acquire(ctx context.Context, issueID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[issueID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[issueID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.drop(issueID, slot)
			})
		}, nil
	case <-ctx.Done():
		l.drop(issueID, slot)
		return func() {}, quality.Unavailable(fmt.Errorf("wait for issue %s lock: %w", issueID, ctx.Err()))
	}
}

func (l *issueLocks) drop(issueID string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, issueID)
	}
}

func (l *issueLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
