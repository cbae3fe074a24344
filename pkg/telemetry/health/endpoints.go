package health

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	// Version is the semantic version (e.g., "1.0.0")
	Version string `json:"version"`

	// Commit is the git commit hash
	Commit string `json:"commit"`

	// BuildTime is when the binary was built
	BuildTime string `json:"build_time"`

	// GoVersion is the Go version used to build
	GoVersion string `json:"go_version"`
}

// LivenessHandler returns the /health handler.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.CheckLiveness(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(status)
		}
	}
}

// ReadinessHandler returns the /ready handler. Anything but "ready"
// answers 503.
//
// Example response (degraded):
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "input": {"status": "ok", "required": true}
//	    },
//	    "last_export": {"runs": 3, "trigger": "cron", "error": "last cron run failed: ..."},
//	    "timestamp": "2026-10-17T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.CheckReadiness(r.Context())

		w.Header().Set("Content-Type", "application/json")

		if status.Status != StatusReady {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(status)
		}
	}
}

// VersionHandler returns the /version handler.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(info)
		}
	}
}

// HealthCheckHandlers bundles all health check HTTP handlers.
type HealthCheckHandlers struct {
	// LivenessHandler is the /health endpoint handler
	LivenessHandler http.HandlerFunc

	// ReadinessHandler is the /ready endpoint handler
	ReadinessHandler http.HandlerFunc

	// VersionHandler is the /version endpoint handler
	VersionHandler http.HandlerFunc
}

// CreateHandlers creates HTTP handlers for all health check endpoints.
func (c *Checker) CreateHandlers(version, commit, buildTime string) HealthCheckHandlers {
	return HealthCheckHandlers{
		LivenessHandler:  c.LivenessHandler(),
		ReadinessHandler: c.ReadinessHandler(),
		VersionHandler:   VersionHandler(version, commit, buildTime),
	}
}

// HTTPMiddleware registers /health, /ready and /version on mux.
func HTTPMiddleware(mux *http.ServeMux, checker *Checker, version, commit, buildTime string) {
	handlers := checker.CreateHandlers(version, commit, buildTime)

	mux.HandleFunc("/health", handlers.LivenessHandler)
	mux.HandleFunc("/ready", handlers.ReadinessHandler)
	mux.HandleFunc("/version", handlers.VersionHandler)
}
