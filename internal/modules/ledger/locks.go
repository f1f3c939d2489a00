package ledger

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLocks serializes mutations per instrument symbol. Symbols hash onto a
// fixed set of mutexes, so unrelated symbols may occasionally share one.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *keyLocks) lock(symbol string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// lockAll takes every stripe in index order. Single-symbol callers hold
// at most one stripe, so this cannot deadlock against them.
func (l *keyLocks) lockAll() (unlock func()) {
	for i := range l.stripes {
		l.stripes[i].Lock()
	}
	return func() {
		for i := len(l.stripes) - 1; i >= 0; i-- {
			l.stripes[i].Unlock()
		}
	}
}
