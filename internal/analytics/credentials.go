// internal/analytics/credentials.go
package analytics

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/wanderer/internal/config"
)

// Keys read from a .env file.
const (
	EnvUsername  = "WANDERER_MIXPANEL_USERNAME"
	EnvSecret    = "WANDERER_MIXPANEL_SECRET"
	EnvProjectID = "WANDERER_MIXPANEL_PROJECT_ID"
)

// LoadCredentials resolves service account credentials. Sources are layered,
// later ones winning field by field: the .env file, then the loaded
// configuration (which already carries the process environment), then an
// explicit credentials file. A missing .env file is not an error; a missing
// credentials file is.
func LoadCredentials(cfg config.MixpanelConfig) (Credentials, error) {
	var creds Credentials

	if cfg.EnvFile != "" {
		fromEnv, err := credentialsFromEnvFile(cfg.EnvFile)
		if err != nil {
			return Credentials{}, err
		}
		creds.overlay(fromEnv)
	}

	creds.overlay(Credentials{Username: cfg.Username, Secret: cfg.Secret, ProjectID: cfg.ProjectID})

	if cfg.CredentialsFile != "" {
		fromFile, err := credentialsFromFile(cfg.CredentialsFile)
		if err != nil {
			return Credentials{}, err
		}
		creds.overlay(fromFile)
	}
	return creds, nil
}

func credentialsFromEnvFile(path string) (Credentials, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to expand env file path %q: %w", path, err)
	}
	values, err := godotenv.Read(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("failed to read env file %s: %w", expanded, err)
	}
	return Credentials{
		Username:  values[EnvUsername],
		Secret:    values[EnvSecret],
		ProjectID: values[EnvProjectID],
	}, nil
}

// credentialsFromFile reads a YAML, JSON or TOML file with username, secret
// and project_id keys. Files without an extension are read as YAML.
func credentialsFromFile(path string) (Credentials, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to expand credentials path %q: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(expanded)
	if filepath.Ext(expanded) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials file %s: %w", expanded, err)
	}
	return Credentials{
		Username:  v.GetString("username"),
		Secret:    v.GetString("secret"),
		ProjectID: v.GetString("project_id"),
	}, nil
}
