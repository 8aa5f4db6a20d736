package config

import (
	"time"

	"tasks-api/internal/cache"
	"tasks-api/internal/metrics"
	"tasks-api/internal/repository"
	"tasks-api/internal/service"
	"tasks-api/internal/websocket"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
)

// Dependencies is everything a request handler may touch. It is built once
// at startup and passed explicitly to the route layer.
type Dependencies struct {
	Store    *repository.Store
	Auth     *service.AuthService
	Tasks    *service.TaskService
	Validate *validator.Validate
	Cache    cache.TaskCache
	Hub      *websocket.Hub
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// LoginDelay is slept before every login attempt.
	LoginDelay time.Duration
}

// NewDependencies wires the services over store. A nil cache disables
// caching and a nil hub disables task events.
func NewDependencies(store *repository.Store, taskCache cache.TaskCache, hub *websocket.Hub, reg *prometheus.Registry, loginDelay time.Duration) *Dependencies {
	if taskCache == nil {
		taskCache = cache.Noop{}
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)
	return &Dependencies{
		Store:      store,
		Auth:       service.NewAuthService(store, m),
		Tasks:      service.NewTaskService(store, m),
		Validate:   validator.New(),
		Cache:      taskCache,
		Hub:        hub,
		Metrics:    m,
		Gatherer:   reg,
		LoginDelay: loginDelay,
	}
}
