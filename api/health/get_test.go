package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/stream-recorder/api/types"
	"github.com/killallgit/stream-recorder/internal/database"
	"github.com/killallgit/stream-recorder/internal/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		setupDeps      func(t *testing.T) *types.Dependencies
		expectedStatus int
		expectedHealth string
		expectedDB     string
		expectedStore  string
	}{
		{
			name: "healthy with database and store",
			setupDeps: func(t *testing.T) *types.Dependencies {
				db, err := database.Initialize(":memory:", false)
				require.NoError(t, err)
				t.Cleanup(func() { db.Close() })
				store, err := storage.NewFilesystemStore(afero.NewMemMapFs(), "/acct")
				require.NoError(t, err)
				return &types.Dependencies{DB: db, Store: store}
			},
			expectedStatus: http.StatusOK,
			expectedHealth: "ok",
			expectedDB:     "healthy",
			expectedStore:  "configured",
		},
		{
			name: "without dependencies",
			setupDeps: func(t *testing.T) *types.Dependencies {
				return &types.Dependencies{}
			},
			expectedStatus: http.StatusOK,
			expectedHealth: "ok",
			expectedDB:     "not configured",
			expectedStore:  "not configured",
		},
		{
			name: "closed database",
			setupDeps: func(t *testing.T) *types.Dependencies {
				db, err := database.Initialize(":memory:", false)
				require.NoError(t, err)
				require.NoError(t, db.Close())
				return &types.Dependencies{DB: db}
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "unhealthy",
			expectedDB:     "unhealthy",
			expectedStore:  "not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Get(tt.setupDeps(t))(c)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

			assert.Equal(t, tt.expectedHealth, response["status"])
			assert.Equal(t, tt.expectedDB, response["database"].(map[string]interface{})["status"])
			assert.Equal(t, tt.expectedStore, response["store"].(map[string]interface{})["status"])
			assert.NotEmpty(t, response["timestamp"])
		})
	}
}
