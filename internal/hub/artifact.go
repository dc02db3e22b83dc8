package hub

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrNoModelFiles     = errors.New("no model files found")
	ErrNoTokenizerFiles = errors.New("no tokenizer files found")
)

const sampleSize = 512

var (
	modelConfigFiles = []string{"config.json", "adapter_config.json"}
	// Optional files pushed together with the weights.
	modelExtraFiles = []string{
		"generation_config.json",
		"model.safetensors.index.json",
		"pytorch_model.bin.index.json",
	}
	weightExtensions = []string{".safetensors", ".bin"}
	// Files written by training that are not part of the model.
	ignoredWeightFiles = map[string]bool{"training_args.bin": true}

	tokenizerFiles = []string{
		"tokenizer.json",
		"tokenizer_config.json",
		"special_tokens_map.json",
		"vocab.txt",
		"vocab.json",
		"merges.txt",
		"added_tokens.json",
		"sentencepiece.bpe.model",
		"spiece.model",
	}
)

// LocalFile is one file of the artifact, ready for upload.
type LocalFile struct {
	// Path inside the repository.
	Path      string
	LocalPath string
	Size      int64
	// OID is the hex sha256 of the content.
	OID    string
	Sample []byte
}

// Artifact is a trained model directory split into the two commits.
type Artifact struct {
	Dir            string
	ModelFiles     []*LocalFile
	TokenizerFiles []*LocalFile
	// Labels is the size of config.json id2label, -1 when not declared.
	Labels int
}

// LoadArtifact collects and fingerprints the model and tokenizer files in dir.
func LoadArtifact(dir string) (*Artifact, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open model directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	model, err := modelFileNames(dir)
	if err != nil {
		return nil, err
	}

	var tokenizer []string
	for _, name := range tokenizerFiles {
		if isFile(filepath.Join(dir, name)) {
			tokenizer = append(tokenizer, name)
		}
	}
	if len(tokenizer) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoTokenizerFiles)
	}

	a := &Artifact{Dir: dir, Labels: -1}
	if a.ModelFiles, err = describeFiles(dir, model); err != nil {
		return nil, err
	}
	if a.TokenizerFiles, err = describeFiles(dir, tokenizer); err != nil {
		return nil, err
	}
	if a.Labels, err = labelCount(filepath.Join(dir, "config.json")); err != nil {
		return nil, err
	}

	return a, nil
}

func modelFileNames(dir string) ([]string, error) {
	var names []string
	for _, name := range modelConfigFiles {
		if isFile(filepath.Join(dir, name)) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w: config.json or adapter_config.json required", dir, ErrNoModelFiles)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list model directory: %w", err)
	}

	var weights []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || ignoredWeightFiles[name] {
			continue
		}
		for _, ext := range weightExtensions {
			if strings.HasSuffix(name, ext) {
				weights = append(weights, name)
				break
			}
		}
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("%s: %w: no .safetensors or .bin weights", dir, ErrNoModelFiles)
	}
	sort.Strings(weights)
	names = append(names, weights...)

	for _, name := range modelExtraFiles {
		if isFile(filepath.Join(dir, name)) {
			names = append(names, name)
		}
	}

	return names, nil
}

func describeFiles(dir string, names []string) ([]*LocalFile, error) {
	files := make([]*LocalFile, 0, len(names))
	for _, name := range names {
		f, err := describeFile(dir, name)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func describeFile(dir, name string) (*LocalFile, error) {
	localPath := filepath.Join(dir, name)

	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer file.Close()

	hasher := sha256.New()
	sample := make([]byte, sampleSize)
	n, err := io.ReadFull(file, sample)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	sample = sample[:n]
	hasher.Write(sample)

	rest, err := io.Copy(hasher, file)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", name, err)
	}

	return &LocalFile{
		Path:      filepath.ToSlash(name),
		LocalPath: localPath,
		Size:      int64(n) + rest,
		OID:       hex.EncodeToString(hasher.Sum(nil)),
		Sample:    sample,
	}, nil
}

func labelCount(configPath string) (int, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("failed to read config.json: %w", err)
	}

	var cfg struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return -1, fmt.Errorf("failed to parse config.json: %w", err)
	}
	if cfg.ID2Label == nil {
		return -1, nil
	}
	return len(cfg.ID2Label), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
