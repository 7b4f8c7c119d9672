package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RemindersFired counts reminder firings handled by the scheduler.
	RemindersFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dosewise_reminders_fired_total",
		Help: "Total number of medication reminders fired",
	})

	// Deliveries counts per-channel dispatch outcomes.
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dosewise_deliveries_total",
		Help: "Reminder delivery attempts by channel and result",
	}, []string{"channel", "result"})

	// EmergencyAlerts counts emergency-contact alert attempts.
	EmergencyAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dosewise_emergency_alerts_total",
		Help: "Total number of emergency contact alerts attempted",
	})

	// SweepAdoptions counts medications adopted by the reconciliation sweep.
	SweepAdoptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dosewise_sweep_adoptions_total",
		Help: "Medications adopted by the periodic reconciliation sweep",
	})

	// StaleTimersEvicted counts timers removed by the cleanup sweep.
	StaleTimersEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dosewise_stale_timers_evicted_total",
		Help: "Timers whose fire time had already elapsed, removed by cleanup",
	})
)
