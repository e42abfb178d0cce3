package arena

import "expvar"

var (
	metricGameModeEntered      = expvar.NewInt("arena_game_mode_entered_total")
	metricGameModeExited       = expvar.NewInt("arena_game_mode_exited_total")
	metricSessionsStarted      = expvar.NewInt("arena_sessions_started_total")
	metricSessionsBusy         = expvar.NewInt("arena_sessions_busy_total")
	metricMovesApplied         = expvar.NewInt("arena_moves_applied_total")
	metricMovesRejected        = expvar.NewInt("arena_moves_rejected_total")
	metricMoveTimeouts         = expvar.NewInt("arena_move_timeouts_total")
	metricAntiPatternWarnings  = expvar.NewInt("arena_anti_pattern_warnings_total")
	metricCommentaryTriggered  = expvar.NewInt("arena_commentary_triggered_total")
	metricCommentaryFailed     = expvar.NewInt("arena_commentary_failed_total")
	metricCommentaryDropped    = expvar.NewInt("arena_commentary_dropped_total")
	metricCommentaryDiscarded  = expvar.NewInt("arena_commentary_discarded_total")
	metricTeardownStepFailed   = expvar.NewInt("arena_teardown_step_failed_total")
	metricDrawDespiteAdvantage = expvar.NewInt("arena_draw_despite_advantage_total")
)
