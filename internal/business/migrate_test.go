package business

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourista/session-coordinator/internal/config"
)

func TestMigrateMain_InvalidDatabaseConfig(t *testing.T) {
	cfg := &config.Config{
		Database: config.Database{
			Host:     commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/file"}},
			Port:     "5432",
			Name:     "testdb",
			User:     commoncfg.SourceRef{Source: "embedded", Value: "user"},
			Password: commoncfg.SourceRef{Source: "embedded", Value: "pass"},
		},
	}

	err := MigrateMain(t.Context(), cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "making connection string from config")
}

func TestMigrateMain_InvalidPasswordRef(t *testing.T) {
	cfg := &config.Config{
		Database: config.Database{
			Host:     commoncfg.SourceRef{Source: "embedded", Value: "localhost"},
			Port:     "5432",
			Name:     "testdb",
			User:     commoncfg.SourceRef{Source: "embedded", Value: "user"},
			Password: commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/file"}},
		},
	}

	err := MigrateMain(t.Context(), cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "making connection string from config")
}

func TestMigrateMain_InvalidSource(t *testing.T) {
	cfg := &config.Config{
		Database: config.Database{
			Host:     commoncfg.SourceRef{Source: "embedded", Value: "localhost"},
			Port:     "5432",
			Name:     "testdb",
			User:     commoncfg.SourceRef{Source: "embedded", Value: "user"},
			Password: commoncfg.SourceRef{Source: "embedded", Value: "pass"},
		},
		Migrate: config.Migrate{Source: "s3://bucket/migrations"},
	}

	err := MigrateMain(t.Context(), cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported migration source")
}

func TestMigrationSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00001_init.sql"), []byte("-- +goose Up\n"), 0o600))
	file := filepath.Join(dir, "00001_init.sql")

	tests := []struct {
		name      string
		source    string
		wantFile  string
		assertErr assert.ErrorAssertionFunc
	}{
		{name: "Embedded", source: "", wantFile: "00001_session_cookies.sql", assertErr: assert.NoError},
		{name: "Directory", source: "file://" + dir, wantFile: "00001_init.sql", assertErr: assert.NoError},
		{name: "Missing directory", source: "file:///nonexistent/migrations", assertErr: assert.Error},
		{name: "Not a directory", source: "file://" + file, assertErr: assert.Error},
		{name: "Unsupported scheme", source: "github://org/repo", assertErr: assert.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := migrationSource(config.Migrate{Source: tt.source})
			if !tt.assertErr(t, err) || err != nil {
				return
			}

			_, err = fs.Stat(source, tt.wantFile)
			assert.NoError(t, err)
		})
	}
}
