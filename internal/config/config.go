// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type DurableStoreType string

const (
	DurableStoreFile     DurableStoreType = "file"
	DurableStoreValKey   DurableStoreType = "valkey"
	DurableStorePostgres DurableStoreType = "postgres"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	API            API            `yaml:"api"`
	Session        Session        `yaml:"session"`
	DurableStore   DurableStore   `yaml:"durableStore"`
	Database       Database       `yaml:"database"`
	ValKey         ValKey         `yaml:"valkey"`
	Migrate        Migrate        `yaml:"migrate"`
	TokenRefresher TokenRefresher `yaml:"tokenRefresher"`
}

// API points at the remote tourism REST API. All protected calls and the
// authentication endpoints share the base URL.
type API struct {
	BaseURL string        `yaml:"baseURL" default:"http://localhost:5000"`
	Timeout time.Duration `yaml:"timeout" default:"30s"`
}

type Session struct {
	// RefreshTimeout bounds a single refresh call. A timeout counts as a failed refresh.
	RefreshTimeout     time.Duration  `yaml:"refreshTimeout" default:"10s"`
	TokenCookie        CookieTemplate `yaml:"tokenCookie"`
	RefreshTokenCookie CookieTemplate `yaml:"refreshTokenCookie"`
}

type DurableStore struct {
	Type DurableStoreType `yaml:"type" default:"file"`
	// Path of the cookie file used by the file store.
	Path string `yaml:"path" default:"$HOME/.tourista/cookies.yaml"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	SSLMode  string              `yaml:"sslMode" default:"disable"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	Prefix    string              `yaml:"prefix" default:"tourista"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
}

type Migrate struct {
	// Source is a file:// directory of goose migrations. Empty uses the embedded ones.
	Source string `yaml:"source"`
}

type TokenRefresher struct {
	RefreshInterval time.Duration `yaml:"refreshInterval" default:"1m"`
	// ExpiryWindow is how close to expiry an access token must be to get refreshed.
	ExpiryWindow time.Duration `yaml:"expiryWindow" default:"5m"`
}
