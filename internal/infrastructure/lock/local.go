package lock

import (
	"context"
	"sync"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

type localKey struct {
	tenantID uuid.UUID
	key      inventory.CounterKey
}

type keyedMutex struct {
	ch   chan struct{}
	refs int
}

// LocalStockLocker serialises postings inside one process. It is used when
// Redis is not configured, mostly with sqlite.
type LocalStockLocker struct {
	mu    sync.Mutex
	locks map[localKey]*keyedMutex
}

// NewLocalStockLocker creates an in-process locker
func NewLocalStockLocker() *LocalStockLocker {
	return &LocalStockLocker{locks: make(map[localKey]*keyedMutex)}
}

func (l *LocalStockLocker) acquire(k localKey) *keyedMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[k]
	if !ok {
		m = &keyedMutex{ch: make(chan struct{}, 1)}
		l.locks[k] = m
	}
	m.refs++
	return m
}

func (l *LocalStockLocker) drop(k localKey, m *keyedMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(l.locks, k)
	}
}

// Lock takes the keys in order. It gives up with ErrLockNotObtained when ctx
// ends first.
func (l *LocalStockLocker) Lock(ctx context.Context, tenantID uuid.UUID, keys []inventory.CounterKey) (func(), error) {
	type held struct {
		k localKey
		m *keyedMutex
	}
	taken := make([]held, 0, len(keys))
	release := func() {
		for i := len(taken) - 1; i >= 0; i-- {
			<-taken[i].m.ch
			l.drop(taken[i].k, taken[i].m)
		}
	}

	for _, key := range keys {
		k := localKey{tenantID: tenantID, key: key}
		m := l.acquire(k)
		select {
		case m.ch <- struct{}{}:
			taken = append(taken, held{k: k, m: m})
		case <-ctx.Done():
			l.drop(k, m)
			release()
			return nil, shared.ErrLockNotObtained
		}
	}
	return release, nil
}

var _ appinv.StockLocker = (*LocalStockLocker)(nil)
