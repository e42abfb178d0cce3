package agent

import "expvar"

var (
	metricRunnerReplies          = expvar.NewInt("agent_runner_replies_total")
	metricRunnerSuppressed       = expvar.NewInt("agent_runner_suppressed_total")
	metricGenerationFailed       = expvar.NewInt("agent_generation_failed_total")
	metricGenerationRelaxedRetry = expvar.NewInt("agent_generation_relaxed_retry_total")
)
