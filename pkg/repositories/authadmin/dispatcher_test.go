package authadmin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-db/warden/pkg/errors"
)

func newTestDispatcher(t *testing.T, handler http.HandlerFunc) *Dispatcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDispatcher(srv.URL, "service-key", 5*time.Second, zerolog.Nop())
}

func TestDispatchGetWithPathParam(t *testing.T) {
	var gotPath, gotAuth string
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"id":"u-1","email":"a@b.c"}`))
	})

	resp, err := d.Dispatch(context.Background(), "get_user_by_id",
		map[string]interface{}{"id": "u-1"})
	require.NoError(t, err)

	assert.Equal(t, "/admin/users/u-1", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "u-1", resp["id"])
}

func TestDispatchListUsersQueryParams(t *testing.T) {
	var gotQuery string
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"users":[]}`))
	})

	_, err := d.Dispatch(context.Background(), "list_users",
		map[string]interface{}{"page": 2, "per_page": 50})
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "page=2")
	assert.Contains(t, gotQuery, "per_page=50")
}

func TestDispatchCreateUserBody(t *testing.T) {
	var gotMethod string
	var gotBody map[string]interface{}
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"id":"u-2"}`))
	})

	_, err := d.Dispatch(context.Background(), "create_user",
		map[string]interface{}{"email": "new@example.com", "password": "hunter2"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "new@example.com", gotBody["email"])
}

func TestDispatchDeleteFactorPath(t *testing.T) {
	var gotPath, gotMethod string
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := d.Dispatch(context.Background(), "delete_factor",
		map[string]interface{}{"id": "u-1", "factor_id": "f-9"})
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, "/admin/users/u-1/factors/f-9", gotPath)
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestDispatchPathParamsConsumedFromBody(t *testing.T) {
	var gotBody map[string]interface{}
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := d.Dispatch(context.Background(), "update_user_by_id",
		map[string]interface{}{"id": "u-1", "email": "changed@example.com"})
	require.NoError(t, err)

	// The id went into the path, not the body.
	assert.NotContains(t, gotBody, "id")
	assert.Equal(t, "changed@example.com", gotBody["email"])
}

func TestDispatchMissingPathParam(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})

	_, err := d.Dispatch(context.Background(), "delete_user", nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidRequest, errors.GetCode(err))
}

func TestDispatchRejectsPathSeparatorInParam(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})

	_, err := d.Dispatch(context.Background(), "get_user_by_id",
		map[string]interface{}{"id": "u-1/../../secrets"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidRequest, errors.GetCode(err))
}

func TestDispatchUnknownMethod(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})

	_, err := d.Dispatch(context.Background(), "nuke_everything", nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnsupportedOperation, errors.GetCode(err))
}

func TestDispatchUpstreamError(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"user not found"}`))
	})

	_, err := d.Dispatch(context.Background(), "get_user_by_id",
		map[string]interface{}{"id": "missing"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}
