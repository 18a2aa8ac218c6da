package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nic-dns/internal/common/errors"
)

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 10, cfg.MaxIdleConnsPerHost)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Nil(t, cfg.Transport)
}

func TestNewHTTPClient_Options(t *testing.T) {
	client := NewHTTPClient(WithTimeout(5*time.Second), nil, WithUserAgent(""))
	assert.Equal(t, 5*time.Second, client.Timeout)
	_, wrapped := client.Transport.(*userAgentTransport)
	assert.False(t, wrapped)

	client = NewHTTPClientWithTimeout(time.Second)
	assert.Equal(t, time.Second, client.Timeout)
	_, wrapped = client.Transport.(*userAgentTransport)
	assert.True(t, wrapped)
}

func TestNewHTTPClient_UserAgent(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	client := NewHTTPClient(WithUserAgent("nic-dns-test"))

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err := Do(context.Background(), client, req)
	require.NoError(t, err)

	req, _ = http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("User-Agent", "custom")
	_, err = Do(context.Background(), client, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"nic-dns-test", "custom"}, got)
}

func TestDo_ReadsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<response/>"))
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/dns-master/services", nil)
	resp, err := Do(context.Background(), NewHTTPClient(), req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "text/xml", resp.Header.Get("Content-Type"))
	assert.Equal(t, "<response/>", string(resp.Body))
}

func TestDo_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	req, _ := http.NewRequest(http.MethodPost, url+"/oauth/token", nil)
	_, err := Do(context.Background(), NewHTTPClient(), req)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeTransport))
	assert.Contains(t, err.Error(), "POST /oauth/token failed")
}

func TestDo_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err := Do(ctx, NewHTTPClient(), req)
	assert.True(t, errors.IsType(err, errors.ErrTypeTransport))
}
