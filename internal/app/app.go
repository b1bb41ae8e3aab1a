package app

import (
	"fmt"
	"net/http"

	"promptstudio/internal/config"
	"promptstudio/internal/httpapi"
	"promptstudio/internal/llm"
	"promptstudio/internal/service"
	"promptstudio/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer wires application dependencies and returns the configured HTTP
// server plus a stats function for graceful shutdown logging.
func NewServer(cfg *config.Config) (*http.Server, func() (int, int), error) {
	tasks := storage.NewTaskStore(storage.NewSnapshotFile(cfg.TasksFile))
	if err := tasks.Load(); err != nil {
		return nil, nil, fmt.Errorf("load tasks: %w", err)
	}

	endpoints := storage.NewEndpointStore(storage.NewSnapshotFile(cfg.EndpointsFile))
	if err := endpoints.Load(); err != nil {
		return nil, nil, fmt.Errorf("load endpoints: %w", err)
	}

	caller := llm.New(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.Production, nil)
	svc := service.New(tasks, endpoints, caller, llm.CallConfig{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
	})

	mux := http.NewServeMux()
	httpapi.NewHandler(tasks, endpoints, svc).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	var limiter *ipRateLimiter
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst > 0 {
		limiter = newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, limiterTTL)
	}

	handler := loggingMiddleware(
		corsMiddleware(cfg.FrontendOrigins,
			rateLimitMiddleware(limiter,
				metricsMiddleware(mux))))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}
	return srv, tasks.Stats, nil
}
