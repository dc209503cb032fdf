package ledger

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/dmaraujo/merenda-go/internal/normalize"
)

type balanceGroup struct {
	key        string
	display    string
	contracted float64
	received   float64
}

// Balances computes the per-item projection across all suppliers: contracted
// total, quantity received into lots, and remaining = max(0, contracted -
// received). The projection is recomputed fully from the snapshot on every
// request. The cache in front of it only shortcuts repeated reads and is
// dropped on every write.
func (l *Ledger) Balances(ctx context.Context, itemFilter string) ([]domain.Balance, error) {
	filterKey := normalize.Key(itemFilter)

	if cached, ok, err := l.cache.Get(ctx, filterKey); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("ledger: balance cache get failed")
	}

	suppliers, err := l.repo.Suppliers(ctx)
	if err != nil {
		return nil, err
	}

	var groups []*balanceGroup
	find := func(key string) *balanceGroup {
		for _, g := range groups {
			if l.matcher.Match(g.key, key) {
				return g
			}
		}
		return nil
	}

	// Contract items first, in presentation order, so group display names
	// come from the contracts rather than from movement slips.
	for _, s := range suppliers {
		for _, item := range s.Items {
			key := normalize.Key(item.Name)
			if key == "" {
				continue
			}
			g := find(key)
			if g == nil {
				g = &balanceGroup{key: key, display: item.Name}
				groups = append(groups, g)
			} else if len(key) < len(g.key) {
				// The shorter key absorbs the longer one so later partial
				// names still land in the same group.
				g.key = key
			}
			g.contracted += item.Quantity
		}
	}

	for _, s := range suppliers {
		for _, d := range s.Deliveries {
			if d.Status != domain.DeliveryFulfilled {
				continue
			}
			key := normalize.Key(d.ItemName)
			if key == "" {
				continue
			}
			g := find(key)
			if g == nil {
				g = &balanceGroup{key: key, display: d.ItemName}
				groups = append(groups, g)
			}
			g.received += d.LotsInitialTotal()
		}
	}

	balances := make([]domain.Balance, 0, len(groups))
	for _, g := range groups {
		if filterKey != "" && !l.matcher.Match(g.key, filterKey) {
			continue
		}
		remaining := g.contracted - g.received
		if remaining < 0 {
			remaining = 0
		}
		balances = append(balances, domain.Balance{
			Key:        g.key,
			Item:       g.display,
			Contracted: g.contracted,
			Received:   g.received,
			Remaining:  remaining,
		})
	}

	if err := l.cache.Set(ctx, filterKey, balances); err != nil {
		log.Warn().Err(err).Msg("ledger: balance cache set failed")
	}
	return balances, nil
}
