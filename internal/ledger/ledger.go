// Package ledger implements the contract quota and lot inventory core:
// fulfilling reserved delivery slots, partitioning deliveries into traceable
// lots, the append-only movement ledger with oldest-lot-first advisories, and
// the derived balance projection.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dmaraujo/merenda-go/internal/cache"
	"github.com/dmaraujo/merenda-go/internal/normalize"
	"github.com/dmaraujo/merenda-go/internal/repository"
)

// Ledger routes every mutation of delivery, lot and movement state. Reads are
// snapshot-based projections; writes against a lot are serialized through a
// per-barcode mutex so concurrent scans cannot overdraw stock.
type Ledger struct {
	repo    repository.LedgerRepository
	cache   cache.BalanceCache
	matcher *normalize.Matcher
	now     func() time.Time

	mu       sync.Mutex
	lotLocks map[string]*sync.Mutex
}

// New builds a ledger. A nil cache falls back to the noop cache and a nil
// matcher to the default substring matcher.
func New(repo repository.LedgerRepository, balanceCache cache.BalanceCache, matcher *normalize.Matcher) *Ledger {
	if balanceCache == nil {
		balanceCache = cache.NewNoopBalanceCache()
	}
	if matcher == nil {
		matcher = normalize.NewMatcher()
	}
	return &Ledger{
		repo:     repo,
		cache:    balanceCache,
		matcher:  matcher,
		now:      time.Now,
		lotLocks: make(map[string]*sync.Mutex),
	}
}

// lockLot acquires the mutex serializing writes for one barcode. Lock entries
// are never evicted; the universe of lots per quarterly cycle is small.
func (l *Ledger) lockLot(barcode string) *sync.Mutex {
	l.mu.Lock()
	mu, ok := l.lotLocks[barcode]
	if !ok {
		mu = &sync.Mutex{}
		l.lotLocks[barcode] = mu
	}
	l.mu.Unlock()

	mu.Lock()
	return mu
}

// invalidateBalances drops the cached projection after any write. A failed
// invalidation is logged and ignored: the cache entry expires by TTL anyway.
func (l *Ledger) invalidateBalances(ctx context.Context) {
	if err := l.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("ledger: balance cache invalidation failed")
	}
}
