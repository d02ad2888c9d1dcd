package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hydration outcomes.
const (
	hydrateLoaded    = "loaded"
	hydrateEmpty     = "empty"
	hydrateReadError = "read_error"
	hydrateMalformed = "malformed"
)

var (
	// MutationsTotal counts applied cart mutations by operation.
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_store_mutations_total",
			Help: "Total number of cart mutations applied in memory",
		},
		[]string{"op"},
	)

	// HydrationsTotal counts hydration attempts by outcome.
	HydrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_store_hydrations_total",
			Help: "Total number of cart hydrations by outcome",
		},
		[]string{"outcome"},
	)

	// PersistFailuresTotal counts snapshots that could not be written to the slot.
	PersistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_store_persist_failures_total",
			Help: "Total number of cart snapshots dropped because the slot write failed",
		},
		[]string{"mode"},
	)

	// PersistSupersededTotal counts async snapshots replaced before they were written.
	PersistSupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cart_store_persist_superseded_total",
			Help: "Total number of pending async cart snapshots replaced by a newer one",
		},
	)
)
