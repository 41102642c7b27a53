package metrics

import (
	"time"

	"github.com/alekingreal/ajudaita/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// LLM dispatch metrics
	DispatchTotal    = "app_llm_dispatch_total"
	DispatchDuration = "app_llm_dispatch_duration_ms"
	DispatchWait     = "app_llm_admission_wait_ms"

	// Record store metrics
	StoreOperationsTotal = "app_store_operations_total"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordDispatch records one LLM dispatch with its outcome
// (ok, no_answer, throttled, quota, canceled).
func RecordDispatch(kind string, outcome string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			DispatchTotal,
			1,
			map[string]string{
				"kind":    kind,
				"outcome": outcome,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			DispatchDuration,
			duration,
			map[string]string{
				"kind": kind,
			},
		)
	}
}

// RecordAdmissionWait records how long a dispatch waited at the gate before
// admission.
func RecordAdmissionWait(wait time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			DispatchWait,
			wait,
			nil,
		)
	}
}

// RecordStoreOperation records a record-store operation with status.
func RecordStoreOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			StoreOperationsTotal,
			1,
			map[string]string{
				"operation": operation,
				"status":    status,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp).
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds.
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
