package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3SinkPutsUnderPrefix(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewS3Sink(context.Background(), S3Config{
		Bucket:    "ledger",
		Endpoint:  srv.URL,
		PathStyle: true,
		Prefix:    "exports",
	})
	require.NoError(t, err)

	location, err := sink.Put(context.Background(), "export.json", "application/json", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "s3://ledger/exports/export.json", location)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, paths, "PUT /ledger/exports/export.json")
}
