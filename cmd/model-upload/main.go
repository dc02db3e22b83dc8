// Package main provides the command-line tool that publishes the trained
// sentiment model and its tokenizer to the model hub.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"finnews-scraper/internal/app"
	"finnews-scraper/internal/config"
	"finnews-scraper/internal/hub"
	"finnews-scraper/internal/observability"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML config")
	modelPath := flag.String("model", "", "Local model directory, overrides hub.model_path")
	envFile := flag.String("env-file", ".env", "Dotenv file with repo_id and HF_TOKEN")
	storeToken := flag.Bool("store-token", false, "Read a hub token from stdin, save it in the OS keyring and exit")
	flag.Parse()

	if err := config.LoadEnv(*envFile); err != nil {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if endpoint := os.Getenv("HF_ENDPOINT"); endpoint != "" {
		cfg.Hub.Endpoint = endpoint
	}
	if *modelPath != "" {
		cfg.Hub.ModelPath = *modelPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if *storeToken {
		if err := saveToken(os.Stdin, cfg); err != nil {
			log.Fatalf("Failed to store token: %v", err)
		}
		fmt.Printf("Token stored in the keyring (%s/%s)\n", cfg.Hub.KeyringService, cfg.Hub.KeyringAccount)
		return
	}

	logger := observability.NewLoggerWithOptions(observability.Options{
		Path:       cfg.Observability.LogPath,
		Level:      cfg.Observability.LogLevel,
		MaxSizeMB:  cfg.Observability.LogMaxSizeMB,
		MaxBackups: cfg.Observability.LogBackups,
		Console:    os.Stderr,
	})
	defer func() { _ = logger.Close() }()

	ctx, cancel := app.GracefulShutdown(context.Background(), logger)
	defer cancel()

	if err := upload(ctx, cfg, logger); err != nil {
		logger.Error("Upload failed", "error", err.Error())
		fmt.Printf("❌ An error occurred during the upload: %v\n", err)
	}
}

func upload(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	repoID := config.RepoID()
	if repoID == "" {
		return hub.ErrMissingRepoID
	}

	token, err := hub.ResolveToken(cfg.Hub.KeyringService, cfg.Hub.KeyringAccount)
	if err != nil {
		return err
	}

	client := hub.NewHTTPClient(cfg.Hub.Endpoint, token, cfg.GetHubRequestTimeout(), logger)
	uploader := hub.NewUploader(client, hub.Options{
		Revision:  cfg.Hub.Revision,
		Private:   cfg.Hub.Private,
		NumLabels: cfg.Hub.NumLabels,
	}, logger)

	fmt.Printf("🚀 Uploading the model from %s to the repository: %s\n", cfg.Hub.ModelPath, repoID)
	if err := uploader.Upload(ctx, cfg.Hub.ModelPath, repoID); err != nil {
		return err
	}

	fmt.Println("✅ Model and tokenizer uploaded successfully!")
	fmt.Printf("You can see your model at: %s\n", hub.ModelURL(cfg.Hub.Endpoint, repoID))
	return nil
}

// saveToken reads the first line of r as the token.
func saveToken(r io.Reader, cfg *config.Config) error {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return err
		}
		return errors.New("no token on stdin")
	}
	return hub.StoreToken(cfg.Hub.KeyringService, cfg.Hub.KeyringAccount, scanner.Text())
}
