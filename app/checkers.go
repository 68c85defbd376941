package app

import "github.com/mardukros/mardukros-sub000/health"

// registerHealthCheckers wires each subsystem's health signal into the
// Health Monitor's 60s rollup pass (spec §4.12). Thresholds are
// intentionally coarse: the Health Monitor is a signal source for
// operators, not a correctness gate.
func (a *App) registerHealthCheckers() {
	a.Health.RegisterChecker(health.ComponentMemory, a.memoryHealth)
	a.Health.RegisterChecker(health.ComponentAI, a.aiHealth)
}

func (a *App) memoryHealth() health.Status {
	stats := a.Coordinator.CacheStats()
	switch {
	case stats.SourceCount == 0:
		return health.StatusDegraded
	default:
		return health.StatusHealthy
	}
}

func (a *App) aiHealth() health.Status {
	rt := a.Health.ResponseTimeStatsFor(health.ComponentAI)
	if rt.Count == 0 {
		return health.StatusHealthy
	}
	switch {
	case rt.P95 > float64(2*1000):
		return health.StatusUnhealthy
	case rt.P95 > float64(1000):
		return health.StatusDegraded
	default:
		return health.StatusHealthy
	}
}
