package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the failure modes that were silent in the original
// denormalized design: partial fan-out, dedup collisions, read repairs.
var (
	fanoutFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messaging_fanout_write_failures_total",
		Help: "Inbox fan-out writes that failed after retries.",
	})
	dedupConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messaging_dedup_conflicts_total",
		Help: "Conversation creates that lost the uniqueness race and resolved to the existing document.",
	})
	reconcileRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messaging_reconcile_repairs_total",
		Help: "Inbox entries repaired (dropped or restored) by reconciliation.",
	})
	danglingRemovals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messaging_dangling_removals_total",
		Help: "Member removals that left a dangling reference for the reconciler.",
	})
)
