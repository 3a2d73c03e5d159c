package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/cache"
	"github.com/ziadkadry99/shopagent/internal/config"
	"github.com/ziadkadry99/shopagent/internal/embeddings"
	"github.com/ziadkadry99/shopagent/internal/logger"
	"github.com/ziadkadry99/shopagent/internal/task"
)

func feed(events ...task.Event) <-chan task.Event {
	ch := make(chan task.Event, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch
}

func TestPrintEvents(t *testing.T) {
	answer := &agent.Answer{Status: agent.StatusCompleted, Message: "iPhone 15 giá 19.990.000", Confidence: 0.9}

	var buf bytes.Buffer
	err := printEvents(&buf, feed(
		task.Event{Phase: task.PhaseStarted, Content: "Processing query..."},
		task.Event{Phase: task.PhaseCompleted, Answer: answer},
	), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "> Processing query...") {
		t.Errorf("missing progress line in %q", out)
	}
	if !strings.Contains(out, "Confidence: 0.90") {
		t.Errorf("missing footer in %q", out)
	}
}

func TestPrintEventsFault(t *testing.T) {
	fault := errors.New("internal: model down")
	answer := &agent.Answer{Status: agent.StatusInputRequired, Message: "Xin lỗi"}

	var buf bytes.Buffer
	err := printEvents(&buf, feed(task.Event{Phase: task.PhaseInputRequired, Answer: answer, Err: fault}), true)
	if !errors.Is(err, fault) {
		t.Fatalf("expected fault, got %v", err)
	}
	if !strings.Contains(buf.String(), `"status": "input_required"`) {
		t.Errorf("expected JSON answer, got %q", buf.String())
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SHOPAGENT_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHOPAGENT_TEST_KEY", "")
	os.Unsetenv("SHOPAGENT_TEST_KEY")
	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("SHOPAGENT_TEST_KEY"); got != "from-file" {
		t.Errorf("SHOPAGENT_TEST_KEY = %q", got)
	}
}

func TestCreateCacheFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.EnableCaching = false
	c, err := createCacheFromConfig(context.Background(), cfg, logger.Discard())
	if err != nil || c != nil {
		t.Fatalf("disabled cache: got %v, %v", c, err)
	}

	cfg.EnableCaching = true
	c, err = createCacheFromConfig(context.Background(), cfg, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*cache.Memory); !ok {
		t.Errorf("expected memory cache, got %T", c)
	}
}

func TestCreateEmbedderWithoutCredentials(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	cfg := config.DefaultConfig()

	e, err := createEmbedderFromConfig(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := e.(*embeddings.HashEmbedder); !ok {
		t.Errorf("expected hash embedder, got %T", e)
	}

	t.Setenv("GOOGLE_API_KEY", "test-key")
	e, err = createEmbedderFromConfig(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := e.(*embeddings.Cached); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}
}

func TestCreateEmbedderOllamaDimensions(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_ = json.NewEncoder(w).Encode(map[string][][]float32{"embeddings": {make([]float32, 1024)}})
	}))
	defer srv.Close()
	t.Setenv("OLLAMA_HOST", srv.URL)

	cfg := config.DefaultConfig()
	cfg.EmbeddingProvider = config.ProviderOllama
	cfg.EmbeddingModel = "mxbai-embed-large"

	e, err := createEmbedderFromConfig(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Dimensions(); got != 1024 {
		t.Errorf("detected dimensions = %d, want 1024", got)
	}
	if requests != 1 {
		t.Errorf("expected one detection request, got %d", requests)
	}

	cfg.EmbeddingDimensions = 512
	e, err = createEmbedderFromConfig(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Dimensions(); got != 512 {
		t.Errorf("configured dimensions = %d, want 512", got)
	}
	if requests != 1 {
		t.Errorf("configured size should skip detection, got %d requests", requests)
	}
}
