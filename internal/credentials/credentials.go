// Package credentials locates the Google service account key used for both
// the reporting and spreadsheet APIs.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Veraticus/ga4sync/internal/common"
	"github.com/Veraticus/ga4sync/internal/config"
)

// Kind says where a credential was found.
type Kind string

const (
	// KindEnv means the key JSON came from an environment variable.
	KindEnv Kind = "env"
	// KindFile means the key JSON was read from a file.
	KindFile Kind = "file"
)

// Source is a located service account key.
type Source struct {
	Kind     Kind
	Location string
	JSON     []byte
}

// Lookup returns the first available credential. The environment variable
// wins over files; files are tried in order after ~ and $VAR expansion and the
// first existing one is used. Malformed JSON is an error rather than a reason
// to keep looking. The defaults live in config (DefaultCredentialsEnv and
// DefaultCredentialPaths).
func Lookup(envVar string, paths []string, logger *slog.Logger) (*Source, error) {
	if envVar != "" {
		if raw := os.Getenv(envVar); raw != "" {
			if !json.Valid([]byte(raw)) {
				return nil, fmt.Errorf("failed to parse %s: %w", envVar, common.ErrInvalidConfig)
			}
			logger.Info("Using credentials from environment variable", "env", envVar)
			return &Source{Kind: KindEnv, Location: envVar, JSON: []byte(raw)}, nil
		}
	}

	for _, p := range paths {
		path := config.ExpandPath(p)
		data, err := os.ReadFile(path) // #nosec G304 - paths come from configuration
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file %s: %w", path, err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, common.ErrInvalidConfig)
		}
		logger.Info("Using local credentials file", "path", path)
		return &Source{Kind: KindFile, Location: path, JSON: data}, nil
	}

	return nil, common.NewUserError(
		fmt.Sprintf("set %s or place credentials.json in the working directory", envVar),
		common.ErrNoCredentials)
}

// HTTPClient returns an HTTP client authorized with the service account for the given scopes.
func (s *Source) HTTPClient(ctx context.Context, scopes ...string) (*http.Client, error) {
	jwtConfig, err := google.JWTConfigFromJSON(s.JSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account key from %s: %w", s.Location, err)
	}

	return oauth2.NewClient(ctx, jwtConfig.TokenSource(ctx)), nil
}

// ClientEmail returns the service account email, or "" if the key has none.
// Spreadsheets must be shared with this address.
func (s *Source) ClientEmail() string {
	var key struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(s.JSON, &key); err != nil {
		return ""
	}
	return key.ClientEmail
}
