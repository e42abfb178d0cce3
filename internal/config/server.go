package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	AgentsFile       string `env:"AGENTS_FILE" envDefault:"config/agents.yaml"`
	GameProfilesFile string `env:"GAME_PROFILES_FILE"`

	MoveTimeoutSeconds      int `env:"MOVE_TIMEOUT_SECONDS" envDefault:"120"`
	IdleThresholdSeconds    int `env:"IDLE_THRESHOLD_SECONDS" envDefault:"60"`
	HintWindowSeconds       int `env:"HINT_WINDOW_SECONDS" envDefault:"30"`
	CommentaryWorkers       int `env:"COMMENTARY_WORKERS" envDefault:"2"`
	RiskRepetitionThreshold int `env:"RISK_REPETITION_THRESHOLD" envDefault:"2"`
	RiskAdvantageThreshold  int `env:"RISK_ADVANTAGE_THRESHOLD" envDefault:"3"`

	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	LLMAPIKey         string `env:"LLM_API_KEY"`
	LLMTimeoutSeconds int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"60"`

	SpectatorPushEnabled     bool   `env:"SPECTATOR_PUSH_ENABLED" envDefault:"false"`
	SpectatorPushConfigPath  string `env:"SPECTATOR_PUSH_CONFIG_PATH"`
	SpectatorPushConfigJSON  string `env:"SPECTATOR_PUSH_CONFIG_JSON"`
	SpectatorPushReloadMS    int    `env:"SPECTATOR_PUSH_CONFIG_RELOAD_MS" envDefault:"1000"`
	SpectatorPushWorkers     int    `env:"SPECTATOR_PUSH_WORKERS" envDefault:"2"`
	SpectatorPushRetryMax    int    `env:"SPECTATOR_PUSH_RETRY_MAX" envDefault:"3"`
	SpectatorPushRetryBaseMS int    `env:"SPECTATOR_PUSH_RETRY_BASE_MS" envDefault:"500"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
