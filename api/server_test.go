package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/stream-recorder/api/types"
	"github.com/killallgit/stream-recorder/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, deps *types.Dependencies) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := NewServer(":0", config.ServerConfig{}, logger)
	s.SetDependencies(deps)
	require.NoError(t, s.Initialize())
	return s
}

func TestServer_PublicRoutes(t *testing.T) {
	s := newTestServer(t, &types.Dependencies{Build: types.BuildInfo{Version: "1.2.3"}})

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1.2.3")
}

func TestServer_OptionalGroupsAreSkipped(t *testing.T) {
	s := newTestServer(t, &types.Dependencies{})

	for _, path := range []string{"/api/v1/runs", "/api/v1/containers/morning-show/objects"} {
		w := httptest.NewRecorder()
		s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, path, body["path"])
	}
}

func TestServer_DefaultTimeouts(t *testing.T) {
	s := NewServer("127.0.0.1:9000", config.ServerConfig{}, nil)
	assert.Equal(t, "127.0.0.1:9000", s.Addr())
	assert.NotZero(t, s.httpServer.ReadTimeout)
	assert.NotZero(t, s.httpServer.WriteTimeout)
}
