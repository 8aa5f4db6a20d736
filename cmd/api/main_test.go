package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tasks-api/configs"
	"tasks-api/internal/config"
	"tasks-api/internal/testutil"
	myws "tasks-api/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() configs.Config {
	return configs.Config{CORSOrigins: "https://tasks.example.com", RateLimitMax: 3}
}

func TestNewAppCORS(t *testing.T) {
	_, store := testutil.NewSQLiteStore(t)
	app := newApp(testConfig(), config.NewDependencies(store, nil, nil, nil, 0))

	req := httptest.NewRequest(http.MethodOptions, "/v1/tasks", nil)
	req.Header.Set("Origin", "https://tasks.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://tasks.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestNewAppRateLimit(t *testing.T) {
	_, store := testutil.NewSQLiteStore(t)
	app := newApp(testConfig(), config.NewDependencies(store, nil, nil, nil, 0))

	var last int
	for i := 0; i < 4; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nowhere", nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		last = resp.StatusCode
		if i < 3 {
			assert.Equal(t, http.StatusNotFound, last)
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestNewAppTaskEventsRequireSession(t *testing.T) {
	_, store := testutil.NewSQLiteStore(t)
	app := newApp(configs.Config{CORSOrigins: "*"}, config.NewDependencies(store, nil, myws.NewHub(), nil, 0))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/ws/tasks", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
