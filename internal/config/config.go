// Package config resolves runtime settings from the environment with
// viper. Every key answers to both PROMPTSTUDIO_<KEY> and the bare legacy
// variable the deployment scripts already export (PORT, APP_ENV, LLM_*).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config describes runtime settings for the server and the LLM adapter.
type Config struct {
	Port            string
	TasksFile       string
	EndpointsFile   string
	FrontendOrigins []string
	Production      bool

	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	HTTPTimeout    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// envBindings maps viper keys to the bare legacy environment variables.
var envBindings = map[string]string{
	"port":             "PORT",
	"app_env":          "APP_ENV",
	"tasks_file":       "TASKS_FILE",
	"endpoints_file":   "ENDPOINTS_FILE",
	"frontend_origins": "FRONTEND_ORIGINS",
	"llm_base_url":     "LLM_BASE_URL",
	"llm_model":        "LLM_MODEL",
	"llm_api_key":      "LLM_API_KEY",
	"http_timeout":     "HTTP_TIMEOUT",
	"rate_limit_rps":   "RATE_LIMIT_RPS",
	"rate_limit_burst": "RATE_LIMIT_BURST",
}

// Load reads configuration from environment variables, applying defaults
// when necessary.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("tasks_file", "data/tasks.json")
	v.SetDefault("endpoints_file", "data/llm-endpoints.json")
	v.SetDefault("frontend_origins", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("llm_base_url", "")
	v.SetDefault("llm_model", "")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("rate_limit_rps", 10.0)
	v.SetDefault("rate_limit_burst", 20)

	v.SetEnvPrefix("PROMPTSTUDIO")
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "PROMPTSTUDIO_"+env, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("http_timeout"))
	if err != nil {
		return nil, fmt.Errorf("parse HTTP_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Port:            v.GetString("port"),
		TasksFile:       v.GetString("tasks_file"),
		EndpointsFile:   v.GetString("endpoints_file"),
		FrontendOrigins: splitOrigins(v.GetString("frontend_origins")),
		Production:      strings.EqualFold(v.GetString("app_env"), "production"),
		LLMBaseURL:      v.GetString("llm_base_url"),
		LLMModel:        v.GetString("llm_model"),
		LLMAPIKey:       v.GetString("llm_api_key"),
		HTTPTimeout:     timeout,
		RateLimitRPS:    v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:  v.GetInt("rate_limit_burst"),
	}
	return cfg, nil
}

func splitOrigins(s string) []string {
	var origins []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			origins = append(origins, strings.TrimRight(part, "/"))
		}
	}
	return origins
}
