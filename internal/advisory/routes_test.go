package advisory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvisoryRoute(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r)

	tests := []struct {
		name   string
		query  string
		status int
		check  func(t *testing.T, resp Response)
	}{
		{
			name:   "update defaults to post-operation",
			query:  "?trigger=update",
			status: http.StatusOK,
			check: func(t *testing.T, resp Response) {
				assert.Equal(t, PostOperation, resp.Stage)
				assert.True(t, resp.Images.PreImage)
				assert.True(t, resp.Images.PostImage)
			},
		},
		{
			name:   "delete pre-operation",
			query:  "?trigger=delete&stage=preoperation",
			status: http.StatusOK,
			check: func(t *testing.T, resp Response) {
				assert.Equal(t, PreOperation, resp.Stage)
				assert.True(t, resp.Images.PreImage)
				assert.False(t, resp.Images.PostImage)
				assert.Contains(t, resp.Guideline, "Pre-Operation Stage:")
			},
		},
		{
			name:   "unknown message",
			query:  "?trigger=merge",
			status: http.StatusOK,
			check: func(t *testing.T, resp Response) {
				assert.Equal(t, "Not a standard combination. Check plugin docs.", resp.Images.Recommended)
			},
		},
		{name: "missing trigger", query: "", status: http.StatusBadRequest},
		{name: "bad stage", query: "?trigger=create&stage=later", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/advisory"+tt.query, nil))
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.check != nil {
				var resp Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				tt.check(t, resp)
			}
		})
	}
}
