// Package health serves liveness and readiness probes for "pivotal watch".
//
// # Endpoints
//
//   - /health: the process is running
//   - /ready: "ready", "degraded" or "unavailable" (503 unless ready)
//   - /version: build information
//
// # Readiness
//
// Required checks guard what every export needs; when one fails the
// process is unavailable. Advisory checks and the RunTracker only degrade
// it: the last export failed, or none finished within the stale window.
//
//	checker := health.New(5 * time.Second)
//	checker.RequireCheck("input", health.PathCheck(cfg.Ingest.Path))
//	tracker := health.NewRunTracker(2 * time.Hour)
//	checker.TrackRuns(tracker)
//	health.HTTPMiddleware(mux, checker, version, commit, buildTime)
package health
