package netx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadPresignedURL(t *testing.T) {
	t.Run("success 200 OK", func(t *testing.T) {
		var gotQuery string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			gotQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(`{"entries":[]}`))
		}))
		defer ts.Close()

		data, err := DownloadPresignedURL(context.Background(), ts.Client(), ts.URL+"/snapshots/p/x.json?X-Amz-Signature=abc")
		require.NoError(t, err)
		assert.Equal(t, `{"entries":[]}`, string(data))
		assert.Equal(t, "X-Amz-Signature=abc", gotQuery)
	})

	t.Run("non-200 includes body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("SignatureDoesNotMatch"))
		}))
		defer ts.Close()

		_, err := DownloadPresignedURL(context.Background(), nil, ts.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
		assert.Contains(t, err.Error(), "SignatureDoesNotMatch")
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := DownloadPresignedURL(context.Background(), nil, "://bad")
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		_, err := DownloadPresignedURL(context.Background(), nil, url)
		assert.Error(t, err)
	})
}
