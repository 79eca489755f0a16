package rpcclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUID(t *testing.T) {
	uid, ok := NormalizeUID("123e4567-e89b-12d3-a456-426614174000")
	require.True(t, ok)
	assert.Equal(t, "123e4567e89b12d3a456426614174000", uid)

	// The dashless form is accepted too.
	uid, ok = NormalizeUID("123e4567e89b12d3a456426614174000")
	require.True(t, ok)
	assert.Equal(t, "123e4567e89b12d3a456426614174000", uid)

	_, ok = NormalizeUID("not-a-uuid")
	assert.False(t, ok)
	_, ok = NormalizeUID("")
	assert.False(t, ok)
}

func TestClientList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bakers", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("offset"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"uid":"one"}]`))
	}))
	defer server.Close()

	raw, err := New(server.URL).List(context.Background(), "bakers", 20, 5)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"uid":"one"}]`, string(raw))
}

func TestClientDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bakers/abc123", r.URL.Path)
		w.Write([]byte(`{"uid":"abc123"}`))
	}))
	defer server.Close()

	raw, err := New(server.URL).Detail(context.Background(), "bakers", "abc123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"uid":"abc123"}`, string(raw))
}

func TestClientDelete(t *testing.T) {
	deleted := `{"deleted": true}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Write([]byte(deleted))
	}))
	defer server.Close()

	client := New(server.URL)

	ok, err := client.Delete(context.Background(), "bakers", "abc123")
	require.NoError(t, err)
	assert.True(t, ok)

	deleted = `{"deleted": false}`
	ok, err = client.Delete(context.Background(), "bakers", "abc123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL)

	_, err := client.List(context.Background(), "bakers", 0, 10)
	assert.Error(t, err)
	_, err = client.Detail(context.Background(), "bakers", "abc123")
	assert.Error(t, err)
	_, err = client.Delete(context.Background(), "bakers", "abc123")
	assert.Error(t, err)
}
