package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metorial/tattr/internal/catalog"
)

func setupTestAPI(t *testing.T) (*catalog.Catalog, http.Handler) {
	t.Helper()

	c, err := catalog.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Bootstrap(context.Background()))

	return c, NewRouter(c, LoggingMiddleware)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestHandleHealth(t *testing.T) {
	_, h := setupTestAPI(t)

	w := do(t, h, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "sqlite", resp["driver"])
}

func TestHostLifecycle(t *testing.T) {
	_, h := setupTestAPI(t)

	w := do(t, h, http.MethodPost, "/api/v1/hosts", map[string]string{"hostname": "web1"})
	require.Equal(t, http.StatusCreated, w.Code)
	host := decode(t, w)["host"].(map[string]interface{})
	assert.Equal(t, "web1", host["hostname"])
	assert.Equal(t, []interface{}{}, host["tags"])

	w = do(t, h, http.MethodPost, "/api/v1/hosts", map[string]string{"hostname": "web1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "host (web1) already exists", decode(t, w)["error"])

	w = do(t, h, http.MethodPost, "/api/v1/tags", map[string]string{"name": "web"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, h, http.MethodPost, "/api/v1/attributes", map[string]string{"name": "os"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, h, http.MethodPut, "/api/v1/hosts/web1/tags/web", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodPut, "/api/v1/hosts/web1/attributes/os", map[string]string{"value": "linux"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/hosts/web1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	host = decode(t, w)["host"].(map[string]interface{})
	assert.Equal(t, []interface{}{"web"}, host["tags"])
	assert.Equal(t, map[string]interface{}{"os": "linux"}, host["attributes"])

	w = do(t, h, http.MethodPatch, "/api/v1/hosts/web1", map[string]string{"hostname": "web9"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "web9", decode(t, w)["host"].(map[string]interface{})["hostname"])

	w = do(t, h, http.MethodDelete, "/api/v1/hosts/web9/tags/web", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodDelete, "/api/v1/hosts/web9/attributes/os", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodDelete, "/api/v1/hosts/web9", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/hosts/web9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "host (web9) doesn't exist", decode(t, w)["error"])
}

func TestHandleListHostsFilters(t *testing.T) {
	c, h := setupTestAPI(t)
	ctx := context.Background()

	_, err := c.Hosts().Register(ctx, "web1", []string{"web", "prod"}, map[string]string{"os": "linux"})
	require.NoError(t, err)
	_, err = c.Hosts().Register(ctx, "web2", []string{"web"}, map[string]string{"os": "freebsd"})
	require.NoError(t, err)
	_, err = c.Hosts().Register(ctx, "db1", []string{"db"}, nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  []interface{}
	}{
		{name: "all", query: "", want: []interface{}{"db1", "web1", "web2"}},
		{name: "tag", query: "?tag=web", want: []interface{}{"web1", "web2"}},
		{name: "tags", query: "?tag=web&tag=prod", want: []interface{}{"web1"}},
		{name: "attr value", query: "?tag=web&attr=os%3Dfreebsd", want: []interface{}{"web2"}},
		{name: "attr present", query: "?attr=os", want: []interface{}{"web1", "web2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/api/v1/hosts"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			resp := decode(t, w)
			var names []interface{}
			for _, raw := range resp["hosts"].([]interface{}) {
				names = append(names, raw.(map[string]interface{})["hostname"])
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, float64(len(tt.want)), resp["count"])
		})
	}
}

func TestHandleQuery(t *testing.T) {
	c, h := setupTestAPI(t)
	ctx := context.Background()

	_, err := c.Hosts().Register(ctx, "web1", []string{"web"}, nil)
	require.NoError(t, err)
	_, err = c.Hosts().Register(ctx, "web2", []string{"web", "staging"}, nil)
	require.NoError(t, err)
	_, err = c.Hosts().Register(ctx, "db1", []string{"db"}, nil)
	require.NoError(t, err)

	w := do(t, h, http.MethodGet, "/api/v1/query?q="+url.QueryEscape("web +db -staging"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, []interface{}{"db1", "web1"}, resp["hosts"])
	assert.Equal(t, []interface{}{"web", "+db", "-staging"}, resp["query"])

	w = do(t, h, http.MethodGet, "/api/v1/query", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["count"])

	w = do(t, h, http.MethodGet, "/api/v1/query?q="+url.QueryEscape("web +"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveTagInUse(t *testing.T) {
	c, h := setupTestAPI(t)

	_, err := c.Hosts().Register(context.Background(), "web1", []string{"web"}, nil)
	require.NoError(t, err)

	w := do(t, h, http.MethodDelete, "/api/v1/tags/web", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "tag (web) in use by 1 hosts, remove with force", decode(t, w)["error"])

	w = do(t, h, http.MethodDelete, "/api/v1/tags/web?force=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/api/v1/tags/web?force=true", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/tags/web", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttributeEndpoints(t *testing.T) {
	c, h := setupTestAPI(t)

	_, err := c.Hosts().Register(context.Background(), "web1", nil, map[string]string{"os": "linux"})
	require.NoError(t, err)

	w := do(t, h, http.MethodGet, "/api/v1/attributes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, float64(1), resp["count"])

	w = do(t, h, http.MethodPatch, "/api/v1/attributes/os", map[string]string{"name": "platform"})
	require.Equal(t, http.StatusOK, w.Code)
	attr := decode(t, w)["attribute"].(map[string]interface{})
	assert.Equal(t, "platform", attr["attrname"])
	assert.Equal(t, map[string]interface{}{"web1": "linux"}, attr["values"])

	w = do(t, h, http.MethodDelete, "/api/v1/attributes/platform", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = do(t, h, http.MethodDelete, "/api/v1/attributes/platform?force=1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodDelete, "/api/v1/attributes/platform", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReservedCharactersInPathNames(t *testing.T) {
	c, h := setupTestAPI(t)
	ctx := context.Background()

	_, err := c.Hosts().Register(ctx, "50%off", []string{"rack/1"}, map[string]string{"os%": "linux"})
	require.NoError(t, err)
	require.NoError(t, c.Hosts().Add(ctx, "rack/1-host"))

	host := "/api/v1/hosts/" + url.PathEscape("50%off")
	w := do(t, h, http.MethodGet, host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)["host"].(map[string]interface{})
	assert.Equal(t, "50%off", got["hostname"])
	assert.Equal(t, []interface{}{"rack/1"}, got["tags"])

	w = do(t, h, http.MethodGet, "/api/v1/hosts/"+url.PathEscape("rack/1-host"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rack/1-host", decode(t, w)["host"].(map[string]interface{})["hostname"])

	w = do(t, h, http.MethodGet, "/api/v1/tags/"+url.PathEscape("rack/1"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"50%off"}, decode(t, w)["tag"].(map[string]interface{})["hosts"])

	w = do(t, h, http.MethodGet, "/api/v1/attributes/"+url.PathEscape("os%"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPut, "/api/v1/hosts/"+url.PathEscape("rack/1-host")+"/tags/"+url.PathEscape("rack/1"), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodDelete, host+"/tags/"+url.PathEscape("rack/1"), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodDelete, host+"/attributes/"+url.PathEscape("os%"), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodPatch, host, map[string]string{"hostname": "60%off"})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodDelete, "/api/v1/hosts/"+url.PathEscape("60%off"), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	names, err := c.Hosts().Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rack/1-host"}, names)
}

func TestBadRequests(t *testing.T) {
	_, h := setupTestAPI(t)

	w := do(t, h, http.MethodPost, "/api/v1/hosts", map[string]string{"hostname": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/hosts", map[string]string{"name": "web1"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields are rejected")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tags", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(&catalog.NotFoundError{Kind: catalog.KindTag, Name: "x"}))
	assert.Equal(t, http.StatusConflict, statusFor(&catalog.AlreadyExistsError{Kind: catalog.KindTag, Name: "x"}))
	assert.Equal(t, http.StatusConflict, statusFor(&catalog.InUseError{Kind: catalog.KindTag, Name: "x", Count: 2}))
	assert.Equal(t, http.StatusBadRequest, statusFor(&catalog.InvalidQueryError{Token: "+"}))
	assert.Equal(t, http.StatusBadRequest, statusFor(catalog.ErrEmptyName))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
