// Package metrics exposes the ledger's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MovementsTotal counts appended ledger movements by type.
	MovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_movements_total",
		Help: "Number of warehouse movements appended to the ledger.",
	}, []string{"type"})

	// FifoOverridesTotal counts exits committed against a lot other than the
	// globally oldest one, with the override acknowledged.
	FifoOverridesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_fifo_overrides_total",
		Help: "Number of withdrawals that bypassed the oldest lot with an explicit override.",
	})

	// RejectedWithdrawalsTotal counts exits refused before mutation.
	RejectedWithdrawalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_rejected_withdrawals_total",
		Help: "Number of withdrawal requests rejected by validation.",
	}, []string{"reason"})
)
