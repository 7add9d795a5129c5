package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bowerhall/chorus/pkg/journalmem"
)

func embeddingServer(t *testing.T, dimensions int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": make([]float32, dimensions),
		})
	}))
	t.Cleanup(server.Close)

	return server
}

func TestOllamaEmbed(t *testing.T) {
	server := embeddingServer(t, journalmem.VectorDimensions)
	o := newOllama(server.URL, "nomic-embed-text")

	embedding, err := o.Embed(context.Background(), "a decision worth remembering")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(embedding) != journalmem.VectorDimensions {
		t.Errorf("expected %d dimensions, got %d", journalmem.VectorDimensions, len(embedding))
	}
}

func TestOllamaEmbedRejectsWrongDimensions(t *testing.T) {
	server := embeddingServer(t, 384)
	o := newOllama(server.URL, "all-minilm")

	if _, err := o.Embed(context.Background(), "text"); err == nil {
		t.Error("expected error for mismatched embedding dimensions")
	}
}

func TestOllamaEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	o := newOllama(server.URL, "missing-model")
	if _, err := o.Embed(context.Background(), "text"); err == nil {
		t.Error("expected error for non-200 response")
	}
}
