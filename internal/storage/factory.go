package storage

import (
	"fmt"
	"strings"
)

// Type selects the Store backend.
type Type string

const (
	TypeLocal        Type = "local"
	TypeS3           Type = "s3"
	TypeR2           Type = "r2"
	TypeS3Compatible Type = "s3compatible"
	TypeMinIO        Type = "minio"
)

// Config holds the settings for every backend; each one reads the fields it needs.
type Config struct {
	Type      Type
	LocalDir  string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

// New creates the Store selected by cfg.Type.
// Parameters:
//   - cfg: storage configuration; an empty Type is detected from the endpoint,
//     falling back to local disk when no endpoint is set.
// Returns:
//   - Store: initialized backend.
//   - error: non-nil if the backend cannot be created.
func New(cfg Config) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = detectType(cfg.Endpoint)
	}

	switch cfg.Type {
	case TypeLocal:
		return NewLocalStore(cfg.LocalDir)
	case TypeMinIO:
		return NewMinIOStore(cfg)
	case TypeS3, TypeR2, TypeS3Compatible:
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// detectType guesses the backend from the endpoint host.
func detectType(endpoint string) Type {
	endpoint = strings.ToLower(endpoint)

	switch {
	case endpoint == "":
		return TypeLocal
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return TypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return TypeS3
	default:
		return TypeS3Compatible
	}
}
