package httptransport

import "expvar"

var (
	metricGameStartTotal  = expvar.NewInt("http_game_start_total")
	metricGameStartErrors = expvar.NewInt("http_game_start_errors_total")

	metricChannelPostsTotal = expvar.NewInt("http_channel_posts_total")
	metricTurnContextTotal  = expvar.NewInt("http_turn_context_total")

	metricSpectateSSEConnectionsTotal  = expvar.NewInt("spectate_sse_connections_total")
	metricSpectateSSEConnectionsActive = expvar.NewInt("spectate_sse_connections_active")
)
