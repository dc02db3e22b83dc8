package hub

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"finnews-scraper/internal/observability"
)

var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrLFSObject            = errors.New("lfs object rejected")
)

// Upload modes returned by the preupload endpoint.
const (
	ModeRegular = "regular"
	ModeLFS     = "lfs"
)

const lfsMediaType = "application/vnd.git-lfs+json"

// Client defines the hub operations the uploader needs.
type Client interface {
	CreateRepo(ctx context.Context, repoID string, private bool) error
	// Preupload returns the upload mode per repository path.
	Preupload(ctx context.Context, repoID, revision string, files []*LocalFile) (map[string]string, error)
	UploadLFS(ctx context.Context, repoID string, file *LocalFile) error
	Commit(ctx context.Context, repoID, revision string, commit *Commit) error
}

// Commit is one atomic change to the repository.
type Commit struct {
	Summary     string
	Description string
	Files       []CommitFile
}

// CommitFile is a file of a commit. LFS files must be uploaded beforehand.
type CommitFile struct {
	File *LocalFile
	LFS  bool
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the hub REST and git-lfs endpoints.
type HTTPClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
	logger     *observability.Logger
}

func NewHTTPClient(endpoint, token string, timeout time.Duration, logger *observability.Logger) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		logger:     logger,
	}
}

type createRepoRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Type         string `json:"type"`
	Private      bool   `json:"private"`
}

// CreateRepo creates the model repository. An existing repository is not an error.
func (c *HTTPClient) CreateRepo(ctx context.Context, repoID string, private bool) error {
	req := createRepoRequest{Name: repoID, Type: "model", Private: private}
	if org, name, ok := strings.Cut(repoID, "/"); ok {
		req.Organization, req.Name = org, name
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.endpoint+"/api/repos/create", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		c.logger.Debug("Repository already exists", "repo_id", repoID)
		return nil
	}
	return checkStatus(resp, "create repo")
}

type preuploadFile struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sample string `json:"sample"`
}

type preuploadRequest struct {
	Files []preuploadFile `json:"files"`
}

type preuploadResponse struct {
	Files []struct {
		Path       string `json:"path"`
		UploadMode string `json:"uploadMode"`
	} `json:"files"`
}

func (c *HTTPClient) Preupload(ctx context.Context, repoID, revision string, files []*LocalFile) (map[string]string, error) {
	req := preuploadRequest{Files: make([]preuploadFile, 0, len(files))}
	for _, f := range files {
		req.Files = append(req.Files, preuploadFile{
			Path:   f.Path,
			Size:   f.Size,
			Sample: base64.StdEncoding.EncodeToString(f.Sample),
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/models/%s/preupload/%s", c.endpoint, repoID, url.PathEscape(revision))
	resp, err := c.do(ctx, http.MethodPost, endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "preupload"); err != nil {
		return nil, err
	}

	var out preuploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode preupload response: %w", err)
	}

	modes := make(map[string]string, len(out.Files))
	for _, f := range out.Files {
		modes[f.Path] = f.UploadMode
	}
	return modes, nil
}

type lfsObject struct {
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

type lfsBatchRequest struct {
	Operation string      `json:"operation"`
	Transfers []string    `json:"transfers"`
	Objects   []lfsObject `json:"objects"`
	HashAlgo  string      `json:"hash_algo"`
}

type lfsAction struct {
	Href   string            `json:"href"`
	Header map[string]string `json:"header"`
}

type lfsBatchResponse struct {
	Objects []struct {
		OID     string `json:"oid"`
		Size    int64  `json:"size"`
		Actions *struct {
			Upload *lfsAction `json:"upload"`
			Verify *lfsAction `json:"verify"`
		} `json:"actions"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"objects"`
}

// UploadLFS stores the file content through the git-lfs basic transfer.
// Objects the server already has are skipped.
func (c *HTTPClient) UploadLFS(ctx context.Context, repoID string, file *LocalFile) error {
	body, err := json.Marshal(lfsBatchRequest{
		Operation: "upload",
		Transfers: []string{"basic"},
		Objects:   []lfsObject{{OID: file.OID, Size: file.Size}},
		HashAlgo:  "sha256",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s.git/info/lfs/objects/batch", c.endpoint, repoID)
	resp, err := c.do(ctx, http.MethodPost, endpoint, lfsMediaType, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "lfs batch"); err != nil {
		return err
	}

	var batch lfsBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return fmt.Errorf("failed to decode lfs batch response: %w", err)
	}
	if len(batch.Objects) == 0 {
		return fmt.Errorf("%s: %w: empty batch response", file.Path, ErrLFSObject)
	}

	obj := batch.Objects[0]
	if obj.Error != nil {
		return fmt.Errorf("%s: %w: %d %s", file.Path, ErrLFSObject, obj.Error.Code, obj.Error.Message)
	}
	if obj.Actions == nil || obj.Actions.Upload == nil {
		c.logger.Debug("LFS object already present", "path", file.Path, "oid", file.OID)
		return nil
	}

	if err := c.putObject(ctx, obj.Actions.Upload, file); err != nil {
		return err
	}

	if obj.Actions.Verify != nil {
		return c.verifyObject(ctx, obj.Actions.Verify, file)
	}
	return nil
}

func (c *HTTPClient) putObject(ctx context.Context, action *lfsAction, file *LocalFile) error {
	content, err := os.Open(file.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file.Path, err)
	}
	defer content.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, action.Href, content)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = file.Size
	for k, v := range action.Header {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", file.Path, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp, "lfs upload")
}

func (c *HTTPClient) verifyObject(ctx context.Context, action *lfsAction, file *LocalFile) error {
	body, err := json.Marshal(lfsObject{OID: file.OID, Size: file.Size})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action.Href, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", lfsMediaType)
	req.Header.Set("Accept", lfsMediaType)
	req.Header.Set("Authorization", "Bearer "+c.token)
	for k, v := range action.Header {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to verify %s: %w", file.Path, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp, "lfs verify")
}

type commitLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type commitInlineFile struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
}

type commitLFSFile struct {
	Path string `json:"path"`
	Algo string `json:"algo"`
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

// Commit sends the commit as NDJSON: a header line then one line per file.
func (c *HTTPClient) Commit(ctx context.Context, repoID, revision string, commit *Commit) error {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	enc := json.NewEncoder(w)

	if err := enc.Encode(commitLine{Key: "header", Value: commitHeader{Summary: commit.Summary, Description: commit.Description}}); err != nil {
		return fmt.Errorf("failed to encode commit header: %w", err)
	}

	for _, cf := range commit.Files {
		var line commitLine
		if cf.LFS {
			line = commitLine{Key: "lfsFile", Value: commitLFSFile{Path: cf.File.Path, Algo: "sha256", OID: cf.File.OID, Size: cf.File.Size}}
		} else {
			content, err := os.ReadFile(cf.File.LocalPath)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", cf.File.Path, err)
			}
			line = commitLine{Key: "file", Value: commitInlineFile{
				Content:  base64.StdEncoding.EncodeToString(content),
				Path:     cf.File.Path,
				Encoding: "base64",
			}}
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode %s: %w", cf.File.Path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to build commit: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/models/%s/commit/%s", c.endpoint, repoID, url.PathEscape(revision))
	resp, err := c.do(ctx, http.MethodPost, endpoint, "application/x-ndjson", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp, "commit")
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	if contentType == lfsMediaType {
		req.Header.Set("Accept", lfsMediaType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("Hub request", "method", method, "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s: %w: %d: %s", op, ErrUnexpectedStatusCode, resp.StatusCode, strings.TrimSpace(string(msg)))
}
