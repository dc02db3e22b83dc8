package hub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finnews-scraper/internal/observability"
)

var ErrMissingRepoID = errors.New("repo_id is not set")

const (
	modelCommitMessage     = "Committing final model"
	tokenizerCommitMessage = "Committing tokenizer files"
)

// Options tune an upload.
type Options struct {
	Revision string
	Private  bool
	// NumLabels is the expected classifier size; 0 skips the check.
	NumLabels int
}

// Uploader pushes a trained model directory to a hub repository.
type Uploader struct {
	client Client
	opts   Options
	logger *observability.Logger
}

func NewUploader(client Client, opts Options, logger *observability.Logger) *Uploader {
	if opts.Revision == "" {
		opts.Revision = "main"
	}
	return &Uploader{
		client: client,
		opts:   opts,
		logger: logger,
	}
}

// Upload pushes the model files and then the tokenizer files of localPath to
// repoID as two commits. Nothing is retried.
func (u *Uploader) Upload(ctx context.Context, localPath, repoID string) error {
	if repoID == "" {
		return ErrMissingRepoID
	}

	artifact, err := LoadArtifact(localPath)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	u.checkLabels(artifact)

	u.logger.Info("Uploading model",
		"path", localPath,
		"repo_id", repoID,
		"model_files", len(artifact.ModelFiles),
		"tokenizer_files", len(artifact.TokenizerFiles),
	)

	if err := u.client.CreateRepo(ctx, repoID, u.opts.Private); err != nil {
		return fmt.Errorf("failed to create repo: %w", err)
	}

	if err := u.push(ctx, repoID, modelCommitMessage, artifact.ModelFiles); err != nil {
		return fmt.Errorf("failed to push model: %w", err)
	}
	if err := u.push(ctx, repoID, tokenizerCommitMessage, artifact.TokenizerFiles); err != nil {
		return fmt.Errorf("failed to push tokenizer: %w", err)
	}

	u.logger.Info("Upload completed", "repo_id", repoID)
	return nil
}

// ModelURL returns the web page of repoID on the hub at endpoint.
func ModelURL(endpoint, repoID string) string {
	return strings.TrimRight(endpoint, "/") + "/" + repoID
}

func (u *Uploader) push(ctx context.Context, repoID, message string, files []*LocalFile) error {
	modes, err := u.client.Preupload(ctx, repoID, u.opts.Revision, files)
	if err != nil {
		return err
	}

	commit := &Commit{Summary: message}
	for _, f := range files {
		isLFS := modes[f.Path] == ModeLFS
		if isLFS {
			u.logger.Info("Uploading LFS object", "path", f.Path, "size", f.Size)
			if err := u.client.UploadLFS(ctx, repoID, f); err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
		}
		commit.Files = append(commit.Files, CommitFile{File: f, LFS: isLFS})
	}

	if err := u.client.Commit(ctx, repoID, u.opts.Revision, commit); err != nil {
		return err
	}

	u.logger.Info("Commit created", "repo_id", repoID, "summary", message, "files", len(files))
	return nil
}

func (u *Uploader) checkLabels(a *Artifact) {
	if u.opts.NumLabels <= 0 || a.Labels < 0 {
		return
	}
	if a.Labels != u.opts.NumLabels {
		u.logger.Warn("Label count mismatch",
			"expected", u.opts.NumLabels,
			"config_id2label", a.Labels,
		)
	}
}
