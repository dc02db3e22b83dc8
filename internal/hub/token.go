package hub

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

var ErrMissingToken = errors.New("hub token not found (set HF_TOKEN or store it in the keyring)")

// tokenEnvVars are checked in order before the keyring.
var tokenEnvVars = []string{"HF_TOKEN", "HUGGING_FACE_HUB_TOKEN"}

// ResolveToken returns the access token from the environment, falling back
// to the OS keyring entry service/account.
func ResolveToken(service, account string) (string, error) {
	for _, name := range tokenEnvVars {
		if token := strings.TrimSpace(os.Getenv(name)); token != "" {
			return token, nil
		}
	}

	if strings.TrimSpace(service) == "" || strings.TrimSpace(account) == "" {
		return "", ErrMissingToken
	}

	token, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrMissingToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read keyring: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}

	return strings.TrimSpace(token), nil
}

// StoreToken saves token in the OS keyring.
func StoreToken(service, account, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(service, account, token)
}
