package reconcile

import "sync"

// accountLocks serialises units of work per account. Entries are reference
// counted and dropped when the last holder releases them.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*accountLock)}
}

// lock blocks until accountID is free and returns the release func.
func (l *accountLocks) lock(accountID string) func() {
	l.mu.Lock()
	al, ok := l.locks[accountID]
	if !ok {
		al = &accountLock{}
		l.locks[accountID] = al
	}
	al.refs++
	l.mu.Unlock()

	al.mu.Lock()
	return func() {
		al.mu.Unlock()

		l.mu.Lock()
		al.refs--
		if al.refs == 0 {
			delete(l.locks, accountID)
		}
		l.mu.Unlock()
	}
}

// held returns the number of accounts with a holder or waiter.
func (l *accountLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
