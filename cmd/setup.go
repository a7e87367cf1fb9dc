package main

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/desertthunder/halx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations, or undoes the latest one with --rollback.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}
	shared.ApplyEnv(config)

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.logger.Info("rolled back latest migration", "path", config.Database.Path)
		return r.writePlain("✓ Rolled back the latest migration\n")
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// SetupConfig writes a config file from the embedded template with the given overrides.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%w: %s already exists, pass --force to overwrite", shared.ErrInvalidArgument, configPath)
	}

	config := shared.DefaultConfig()
	if v := cmd.String("api-url"); v != "" {
		if err := validateURL(v); err != nil {
			return err
		}
		config.API.BaseURL = v
	}
	if v := cmd.String("issuer"); v != "" {
		if err := validateURL(v); err != nil {
			return err
		}
		config.Credentials.OIDC.Issuer = v
	}
	if v := cmd.String("client-id"); v != "" {
		config.Credentials.OIDC.ClientID = v
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return err
	}

	r.logger.Info("config written", "path", configPath)
	r.writePlain("✓ Configuration written to %s\n", configPath)
	r.writePlain("API: %s\n", config.API.BaseURL)
	return nil
}

// SetupToken stores the bearer token of a "Copy as cURL" export as the static API token.
//
// The API base URL is taken from the request when the config still has none.
func (r *Runner) SetupToken(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	configPath := cmd.String("config")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var req *shared.CurlRequest
	var err error

	if curlFile != "" {
		req, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		req, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	token, err := req.BearerToken()
	if err != nil {
		return err
	}
	r.logger.Debug("extracted headers", "headers", req.HeaderLines())

	config, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}
	config.Credentials.Token = token

	if origin := originOf(req.URL); origin != "" && config.API.BaseURL == shared.DefaultConfig().API.BaseURL {
		config.API.BaseURL = origin
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return err
	}

	r.logger.Info("token saved", "path", configPath)

	r.writePlain("✓ Bearer token stored in %s\n", configPath)
	r.writePlain("API: %s\n", config.API.BaseURL)
	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'halx browse' to check the token is accepted\n")
	r.writePlain("2. Tokens lifted from a browser expire; prefer 'halx auth login' for long sessions\n")

	return nil
}

// loadConfigFile reads path without environment overrides.
func loadConfigFile(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return shared.DefaultConfig(), nil
	}
	return shared.LoadConfig(path)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute URL", shared.ErrInvalidArgument, raw)
	}
	return nil
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
