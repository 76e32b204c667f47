package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"prompt":"hi"}`), 0o644))

	resolver := NewResolver()
	file, err := resolver.Resolve(context.Background(), path, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "prompts.jsonl", file.Name)
	assert.Equal(t, `{"prompt":"hi"}`, string(file.Content))
}

func TestResolve_LocalFileTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.jsonl")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	resolver := NewResolver()
	_, err := resolver.Resolve(context.Background(), path, 10)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestResolve_LocalDirectoryRejected(t *testing.T) {
	resolver := NewResolver()
	_, err := resolver.Resolve(context.Background(), t.TempDir(), 1<<20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory")
}

func TestResolve_HTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote content"))
	}))
	defer server.Close()

	resolver := NewResolver(WithHTTPClient(server.Client()))
	file, err := resolver.Resolve(context.Background(), server.URL+"/data/prompts.jsonl", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "prompts.jsonl", file.Name)
	assert.Equal(t, "remote content", string(file.Content))
}

func TestResolve_HTTPTooLargeByBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Chunked response: no Content-Length, the limit is enforced while
		// reading.
		w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	resolver := NewResolver(WithHTTPClient(server.Client()))
	_, err := resolver.Resolve(context.Background(), server.URL+"/big", 1024)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestResolve_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	resolver := NewResolver(WithHTTPClient(server.Client()))
	_, err := resolver.Resolve(context.Background(), server.URL+"/denied", 1<<20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestResolve_SFTPRequiresCredentials(t *testing.T) {
	resolver := NewResolver()
	_, err := resolver.Resolve(context.Background(), "sftp://gen-1/data/prompts.jsonl", 1<<20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}
