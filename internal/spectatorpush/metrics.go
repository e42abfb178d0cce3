package spectatorpush

import "expvar"

var (
	metricPushQueuedTotal       = expvar.NewInt("arena_push_queued_total")
	metricPushDroppedTotal      = expvar.NewInt("arena_push_dropped_total")
	metricPushRetryTotal        = expvar.NewInt("arena_push_retry_total")
	metricPushRetryDroppedTotal = expvar.NewInt("arena_push_retry_dropped_total")
	metricPushRejectedTotal     = expvar.NewInt("arena_push_rejected_total")
	metricPushSentTotal         = expvar.NewInt("arena_push_sent_total")
	metricPushFailedTotal       = expvar.NewInt("arena_push_failed_total")
	metricPushCircuitOpenTotal  = expvar.NewInt("arena_push_circuit_open_total")
	metricPushQueueLen          = expvar.NewInt("arena_push_queue_len")
	metricPushConfigReloads     = expvar.NewInt("arena_push_config_reloads_total")
	metricPushConfigReloadError = expvar.NewInt("arena_push_config_reload_errors_total")
)
