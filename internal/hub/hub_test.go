package hub

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"finnews-scraper/internal/observability"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func modelDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"config.json":             `{"id2label": {"0": "negative", "1": "neutral", "2": "positive"}}`,
		"model.safetensors":       strings.Repeat("w", 2048),
		"training_args.bin":       "ignored",
		"tokenizer.json":          `{"version": "1.0"}`,
		"tokenizer_config.json":   `{}`,
		"special_tokens_map.json": `{}`,
		"vocab.txt":               "[PAD]\n[UNK]\n",
	})
	return dir
}

func paths(files []*LocalFile) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestLoadArtifact(t *testing.T) {
	dir := modelDir(t)

	a, err := LoadArtifact(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"config.json", "model.safetensors"}, paths(a.ModelFiles))
	assert.Equal(t, []string{"tokenizer.json", "tokenizer_config.json", "special_tokens_map.json", "vocab.txt"}, paths(a.TokenizerFiles))
	assert.Equal(t, 3, a.Labels)

	weights := a.ModelFiles[1]
	sum := sha256.Sum256([]byte(strings.Repeat("w", 2048)))
	assert.Equal(t, hex.EncodeToString(sum[:]), weights.OID)
	assert.Equal(t, int64(2048), weights.Size)
	assert.Len(t, weights.Sample, sampleSize)
}

func TestLoadArtifactErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{
			name:  "no config",
			files: map[string]string{"model.safetensors": "w", "tokenizer.json": "{}"},
			want:  ErrNoModelFiles,
		},
		{
			name:  "no weights",
			files: map[string]string{"config.json": "{}", "tokenizer.json": "{}"},
			want:  ErrNoModelFiles,
		},
		{
			name:  "no tokenizer",
			files: map[string]string{"adapter_config.json": "{}", "adapter_model.bin": "w"},
			want:  ErrNoTokenizerFiles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files)

			_, err := LoadArtifact(dir)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := LoadArtifact(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

// MockClient implements the Client interface for testing.
type MockClient struct {
	CreateRepoFunc func(ctx context.Context, repoID string, private bool) error
	PreuploadFunc  func(ctx context.Context, repoID, revision string, files []*LocalFile) (map[string]string, error)
	UploadLFSFunc  func(ctx context.Context, repoID string, file *LocalFile) error
	CommitFunc     func(ctx context.Context, repoID, revision string, commit *Commit) error
}

func (m *MockClient) CreateRepo(ctx context.Context, repoID string, private bool) error {
	if m.CreateRepoFunc != nil {
		return m.CreateRepoFunc(ctx, repoID, private)
	}
	return nil
}

func (m *MockClient) Preupload(ctx context.Context, repoID, revision string, files []*LocalFile) (map[string]string, error) {
	if m.PreuploadFunc != nil {
		return m.PreuploadFunc(ctx, repoID, revision, files)
	}
	return map[string]string{}, nil
}

func (m *MockClient) UploadLFS(ctx context.Context, repoID string, file *LocalFile) error {
	if m.UploadLFSFunc != nil {
		return m.UploadLFSFunc(ctx, repoID, file)
	}
	return nil
}

func (m *MockClient) Commit(ctx context.Context, repoID, revision string, commit *Commit) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, repoID, revision, commit)
	}
	return nil
}

func TestUploader_Upload_TwoCommits(t *testing.T) {
	dir := modelDir(t)

	var lfsUploads []string
	var commits []*Commit
	mock := &MockClient{
		PreuploadFunc: func(_ context.Context, _, revision string, files []*LocalFile) (map[string]string, error) {
			assert.Equal(t, "main", revision)
			modes := map[string]string{}
			for _, f := range files {
				modes[f.Path] = ModeRegular
				if strings.HasSuffix(f.Path, ".safetensors") {
					modes[f.Path] = ModeLFS
				}
			}
			return modes, nil
		},
		UploadLFSFunc: func(_ context.Context, _ string, file *LocalFile) error {
			lfsUploads = append(lfsUploads, file.Path)
			return nil
		},
		CommitFunc: func(_ context.Context, repoID, _ string, commit *Commit) error {
			assert.Equal(t, "user/finbeto", repoID)
			commits = append(commits, commit)
			return nil
		},
	}

	u := NewUploader(mock, Options{NumLabels: 3}, observability.NewNopLogger())
	require.NoError(t, u.Upload(context.Background(), dir, "user/finbeto"))

	assert.Equal(t, []string{"model.safetensors"}, lfsUploads)
	require.Len(t, commits, 2)
	assert.Equal(t, "Committing final model", commits[0].Summary)
	assert.Equal(t, "Committing tokenizer files", commits[1].Summary)

	require.Len(t, commits[0].Files, 2)
	assert.False(t, commits[0].Files[0].LFS)
	assert.True(t, commits[0].Files[1].LFS)
	assert.Len(t, commits[1].Files, 4)
}

func TestUploader_Upload_Failures(t *testing.T) {
	dir := modelDir(t)
	errBoom := errors.New("boom")

	u := NewUploader(&MockClient{}, Options{}, observability.NewNopLogger())
	assert.ErrorIs(t, u.Upload(context.Background(), dir, ""), ErrMissingRepoID)

	commitCalls := 0
	u = NewUploader(&MockClient{
		CommitFunc: func(context.Context, string, string, *Commit) error {
			commitCalls++
			return errBoom
		},
	}, Options{}, observability.NewNopLogger())
	err := u.Upload(context.Background(), dir, "user/finbeto")
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, commitCalls, "tokenizer commit must not run after the model commit failed")

	u = NewUploader(&MockClient{
		CreateRepoFunc: func(context.Context, string, bool) error { return errBoom },
	}, Options{}, observability.NewNopLogger())
	assert.ErrorIs(t, u.Upload(context.Background(), dir, "user/finbeto"), errBoom)
}

// fakeHub records what a hub would receive.
type fakeHub struct {
	mu        sync.Mutex
	requests  []string
	lfsBody   []byte
	commits   [][]map[string]any
	authOK    bool
	repoExist bool
}

func (h *fakeHub) handler(serverURL func() string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/repos/create", func(w http.ResponseWriter, r *http.Request) {
		h.record(r)
		if h.repoExist {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /api/models/user/finbeto/preupload/main", func(w http.ResponseWriter, r *http.Request) {
		h.record(r)
		var req preuploadRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		var resp preuploadResponse
		for _, f := range req.Files {
			mode := ModeRegular
			if strings.HasSuffix(f.Path, ".safetensors") {
				mode = ModeLFS
			}
			resp.Files = append(resp.Files, struct {
				Path       string `json:"path"`
				UploadMode string `json:"uploadMode"`
			}{f.Path, mode})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("POST /user/finbeto.git/info/lfs/objects/batch", func(w http.ResponseWriter, r *http.Request) {
		h.record(r)
		var req lfsBatchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", lfsMediaType)
		_, _ = io.WriteString(w, `{"objects":[{"oid":"`+req.Objects[0].OID+`","size":1,"actions":{`+
			`"upload":{"href":"`+serverURL()+`/lfs/upload","header":{"X-Upload":"yes"}},`+
			`"verify":{"href":"`+serverURL()+`/lfs/verify"}}}]}`)
	})

	mux.HandleFunc("PUT /lfs/upload", func(w http.ResponseWriter, r *http.Request) {
		h.record(r)
		body, _ := io.ReadAll(r.Body)
		h.mu.Lock()
		h.lfsBody = body
		h.mu.Unlock()
		if r.Header.Get("X-Upload") != "yes" {
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	mux.HandleFunc("POST /lfs/verify", func(w http.ResponseWriter, r *http.Request) {
		h.record(r)
	})

	mux.HandleFunc("POST /api/models/user/finbeto/commit/main", func(w http.ResponseWriter, r *http.Request) {
		h.record(r)
		var lines []map[string]any
		sc := bufio.NewScanner(r.Body)
		sc.Buffer(make([]byte, 1<<20), 1<<20)
		for sc.Scan() {
			var line map[string]any
			_ = json.Unmarshal(sc.Bytes(), &line)
			lines = append(lines, line)
		}
		h.mu.Lock()
		h.commits = append(h.commits, lines)
		h.mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true}`)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/lfs/upload") && r.Header.Get("Authorization") != "Bearer hf_test" {
			h.mu.Lock()
			h.authOK = false
			h.mu.Unlock()
		}
		mux.ServeHTTP(w, r)
	})
}

func (h *fakeHub) record(r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, r.Method+" "+r.URL.Path)
}

func TestHTTPClient_EndToEnd(t *testing.T) {
	hub := &fakeHub{authOK: true, repoExist: true}
	var server *httptest.Server
	server = httptest.NewServer(hub.handler(func() string { return server.URL }))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", "hf_test", 5*time.Second, observability.NewNopLogger())
	u := NewUploader(client, Options{NumLabels: 3}, observability.NewNopLogger())

	dir := modelDir(t)
	require.NoError(t, u.Upload(context.Background(), dir, "user/finbeto"))

	assert.True(t, hub.authOK)
	assert.Equal(t, []string{
		"POST /api/repos/create",
		"POST /api/models/user/finbeto/preupload/main",
		"POST /user/finbeto.git/info/lfs/objects/batch",
		"PUT /lfs/upload",
		"POST /lfs/verify",
		"POST /api/models/user/finbeto/commit/main",
		"POST /api/models/user/finbeto/preupload/main",
		"POST /api/models/user/finbeto/commit/main",
	}, hub.requests)

	assert.Equal(t, strings.Repeat("w", 2048), string(hub.lfsBody))

	require.Len(t, hub.commits, 2)
	model := hub.commits[0]
	require.Len(t, model, 3)
	assert.Equal(t, "header", model[0]["key"])
	assert.Equal(t, "Committing final model", model[0]["value"].(map[string]any)["summary"])

	assert.Equal(t, "file", model[1]["key"])
	inline := model[1]["value"].(map[string]any)
	assert.Equal(t, "config.json", inline["path"])
	assert.Equal(t, "base64", inline["encoding"])
	decoded, err := base64.StdEncoding.DecodeString(inline["content"].(string))
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "id2label")

	assert.Equal(t, "lfsFile", model[2]["key"])
	lfs := model[2]["value"].(map[string]any)
	assert.Equal(t, "model.safetensors", lfs["path"])
	assert.Equal(t, "sha256", lfs["algo"])
	assert.Equal(t, float64(2048), lfs["size"])

	tok := hub.commits[1]
	assert.Equal(t, "Committing tokenizer files", tok[0]["value"].(map[string]any)["summary"])
	assert.Len(t, tok, 5)
}

func TestHTTPClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "bad", time.Second, observability.NewNopLogger())
	err := client.CreateRepo(context.Background(), "user/finbeto", false)
	require.ErrorIs(t, err, ErrUnexpectedStatusCode)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid token")
}

func TestResolveToken(t *testing.T) {
	keyring.MockInit()

	t.Setenv("HF_TOKEN", "")
	t.Setenv("HUGGING_FACE_HUB_TOKEN", "")

	_, err := ResolveToken("finnews-scraper", "huggingface")
	assert.ErrorIs(t, err, ErrMissingToken)

	require.NoError(t, StoreToken("finnews-scraper", "huggingface", "hf_keyring"))
	token, err := ResolveToken("finnews-scraper", "huggingface")
	require.NoError(t, err)
	assert.Equal(t, "hf_keyring", token)

	t.Setenv("HF_TOKEN", " hf_env ")
	token, err = ResolveToken("finnews-scraper", "huggingface")
	require.NoError(t, err)
	assert.Equal(t, "hf_env", token)
}

func TestModelURL(t *testing.T) {
	assert.Equal(t, "https://huggingface.co/user/finbeto", ModelURL("https://huggingface.co", "user/finbeto"))
	assert.Equal(t, "https://hub.internal.example/user/finbeto", ModelURL("https://hub.internal.example/", "user/finbeto"))
}
