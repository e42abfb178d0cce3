package config

import "github.com/caarlos0/env/v11"

// TestConfig drives the Postgres-backed store tests. They skip when
// ARENA_TEST_POSTGRES_DSN is unset.
type TestConfig struct {
	PostgresDSN string `env:"ARENA_TEST_POSTGRES_DSN,required,notEmpty"`
	KeepSchema  bool   `env:"ARENA_TEST_KEEP_SCHEMA" envDefault:"false"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
