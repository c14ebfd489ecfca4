package health

import (
	"encoding/json"
	"net/http"
)

// Handler returns an HTTP handler that serves the aggregated health of all
// monitored components as JSON. The response code is 503 when the aggregate
// is unhealthy and 200 otherwise; degraded systems still report 200 because
// they continue serving traffic.
func Handler(monitor *Monitor, systemName string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := monitor.AggregateHealth(systemName)

		code := http.StatusOK
		if status.IsUnhealthy() {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
