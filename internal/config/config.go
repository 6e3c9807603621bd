package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	env_utils "memberledger/internal/util/env"
	"memberledger/internal/util/logger"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

var log = logger.GetLogger()

type EnvVariables struct {
	IsTesting   bool
	DatabaseDsn string            `env:"DATABASE_DSN"         required:"true"`
	EnvMode     env_utils.EnvMode `env:"ENV_MODE"             required:"true"`
	// cache
	IsCacheEnabled bool   `env:"IS_CACHE_ENABLED"     env-default:"false"`
	ValkeyHost     string `env:"VALKEY_HOST"`
	ValkeyPort     string `env:"VALKEY_PORT"`
	ValkeyUsername string `env:"VALKEY_USERNAME"`
	ValkeyPassword string `env:"VALKEY_PASSWORD"`
	ValkeyIsSsl    bool   `env:"VALKEY_IS_SSL"        env-default:"false"`
	// how long an active member list may stay cached
	ActiveMembersCacheExpiry time.Duration `env:"ACTIVE_MEMBERS_CACHE_EXPIRY" env-default:"10m"`
	// identity merges
	MergeRetryAttempts int `env:"MERGE_RETRY_ATTEMPTS" env-default:"3"`
}

var (
	env  EnvVariables
	once sync.Once
)

func GetEnv() EnvVariables {
	once.Do(loadEnvVariables)
	return env
}

func loadEnvVariables() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Warn("could not get current working directory", "error", err)
		cwd = "."
	}

	backendRoot := cwd
	for {
		if _, err := os.Stat(filepath.Join(backendRoot, "go.mod")); err == nil {
			break
		}

		parent := filepath.Dir(backendRoot)
		if parent == backendRoot {
			break
		}

		backendRoot = parent
	}

	envPaths := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(backendRoot, ".env"),
	}

	var loaded bool
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Info("Successfully loaded .env", "path", path)
			loaded = true
			break
		}
	}

	// the dedup workflow runs us with a plain process environment
	if !loaded {
		log.Warn("No .env file found, reading process environment only")
	}

	err = cleanenv.ReadEnv(&env)
	if err != nil {
		log.Error("Configuration could not be loaded", "error", err)
		os.Exit(1)
	}

	for _, arg := range os.Args {
		if strings.Contains(arg, "test") {
			env.IsTesting = true
			break
		}
	}

	if env.DatabaseDsn == "" {
		log.Error("DATABASE_DSN is empty")
		os.Exit(1)
	}

	if !env.EnvMode.IsValid() {
		log.Error("ENV_MODE is invalid", "mode", env.EnvMode)
		os.Exit(1)
	}
	log.Info("ENV_MODE loaded", "mode", env.EnvMode)

	if env.IsCacheEnabled {
		if env.ValkeyHost == "" {
			log.Error("VALKEY_HOST is empty")
			os.Exit(1)
		}
		if env.ValkeyPort == "" {
			log.Error("VALKEY_PORT is empty")
			os.Exit(1)
		}
	}

	if env.ActiveMembersCacheExpiry <= 0 {
		log.Error("ACTIVE_MEMBERS_CACHE_EXPIRY must be positive", "value", env.ActiveMembersCacheExpiry)
		os.Exit(1)
	}

	if env.MergeRetryAttempts < 1 {
		log.Error("MERGE_RETRY_ATTEMPTS must be at least 1", "value", env.MergeRetryAttempts)
		os.Exit(1)
	}

	log.Info("Environment variables loaded successfully!")
}
