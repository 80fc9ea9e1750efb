//go:build e2e

package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/docchat/internal/cli/admin"
	"github.com/cloo-solutions/docchat/internal/config"
	"go.uber.org/zap/zaptest"
)

const embeddingDims = 26

// FakeModel is an OpenAI-compatible server. Embeddings are normalized
// letter-frequency vectors; chat completions stream a fixed reply.
type FakeModel struct {
	Server *httptest.Server

	mu       sync.Mutex
	reply    []string
	requests []map[string]any
}

func newFakeModel(t *testing.T) *FakeModel {
	m := &FakeModel{reply: []string{"The answer ", "is in ", "the document."}}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embeddings":
			m.serveEmbeddings(w, r)
		case "/chat/completions":
			m.serveChat(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(m.Server.Close)
	return m
}

// SetReply replaces the fragments streamed for later chat requests.
func (m *FakeModel) SetReply(fragments ...string) {
	m.mu.Lock()
	m.reply = fragments
	m.mu.Unlock()
}

// LastChatRequest returns the decoded body of the most recent chat request.
func (m *FakeModel) LastChatRequest() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func letterVector(text string) []float32 {
	v := make([]float32, embeddingDims)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func (m *FakeModel) serveEmbeddings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Input []string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := make([]map[string]any, 0, len(body.Input))
	for i, text := range body.Input {
		data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": letterVector(text)})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"model":  "text-embedding-3-small",
		"data":   data,
		"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
	})
}

func (m *FakeModel) serveChat(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, body)
	reply := append([]string(nil), m.reply...)
	m.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	for _, f := range reply {
		chunk := map[string]any{
			"id":      "chatcmpl-e2e",
			"object":  "chat.completion.chunk",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": f}}},
		}
		payload, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	Model      *FakeModel
	ServerURL  string
	BinaryDir  string
	HTTPClient *http.Client
	cancel     context.CancelFunc
}

// SetupE2EEnv starts a fake model and a fully wired docchat server with its
// index worker polling quickly.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	model := newFakeModel(t)

	cfg := &config.Config{
		OpenAIAPIKey:        "e2e-key",
		OpenAIBaseURL:       model.Server.URL,
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: embeddingDims,
		ChatModel:           "gpt-4o-mini",
		Temperature:         0.7,
		EmbedBatchSize:      100,
		ChunkMaxChars:       500,
		ChunkMinChars:       350,
		ChunkOverlap:        50,
		RetrievalTopK:       5,
		ContextMaxChars:     8000,
		MaxBodyBytes:        5 << 20,
		JobPollInterval:     50 * time.Millisecond,
	}

	app := admin.Build(cfg, zaptest.NewLogger(t))
	srv := httptest.NewServer(app.Router)

	ctx, cancel := context.WithCancel(context.Background())
	go app.IndexWorker.Start(ctx)

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		Model:      model,
		ServerURL:  srv.URL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		cancel:     cancel,
	}
	t.Cleanup(func() {
		cancel()
		app.IndexWorker.Stop()
		srv.Close()
		if env.BinaryDir != "" {
			os.RemoveAll(env.BinaryDir)
		}
	})
	return env
}

// BuildBinaries builds the docchat client binary
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "docchat-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "docchat"), "./cmd/docchat")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build docchat: %v\n%s", err, out)
	}
}

// RunDocchat runs the docchat CLI against the test server with an isolated config dir.
func (e *E2ETestEnv) RunDocchat(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "docchat"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("DOCCHAT_API_URL=%s", e.ServerURL),
		fmt.Sprintf("XDG_CONFIG_HOME=%s", filepath.Join(workDir, ".config")),
		fmt.Sprintf("HOME=%s", workDir),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, apiResp); err != nil {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
	}
	if resp.StatusCode >= 400 {
		return apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return apiResp, nil
}

// SSEEvent is one parsed server-sent event.
type SSEEvent struct {
	Name string
	Data map[string]string
}

// Chat posts a chat request and collects every event of the stream.
func (e *E2ETestEnv) Chat(body map[string]any) ([]SSEEvent, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	resp, err := e.HTTPClient.Post(e.ServerURL+"/chat", "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, raw)
	}

	var events []SSEEvent
	var current SSEEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.Data); err != nil {
				return nil, err
			}
		case line == "":
			if current.Name != "" {
				events = append(events, current)
			}
			current = SSEEvent{}
		}
	}
	return events, scanner.Err()
}

// WaitForJob polls an index job until it reaches a terminal status.
func (e *E2ETestEnv) WaitForJob(jobID string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := e.Get("/jobs/" + jobID)
		if err != nil {
			return "", err
		}
		var job struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(resp.Data, &job); err != nil {
			return "", err
		}
		if job.Status == "completed" || job.Status == "failed" {
			return job.Status, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return "", fmt.Errorf("job %s did not finish within %s", jobID, timeout)
}
