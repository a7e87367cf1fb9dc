package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/halx/internal/navigation"
	"github.com/desertthunder/halx/internal/repositories"
	"github.com/desertthunder/halx/internal/services"
	"github.com/desertthunder/halx/internal/shared"
	"github.com/desertthunder/halx/internal/tasks"
	"github.com/desertthunder/halx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	api        *services.HALService
	tokens     services.TokenSource
	oidc       *services.OIDCService
	resources  *repositories.ResourceRepository
	history    *repositories.HistoryRepository
	sessions   *repositories.SessionRepository
	httpClient *http.Client
	driver     ui.PromptDriver
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	DB         *sql.DB // Optional; history, cache and OIDC sessions need it
	API        *services.HALService
	Tokens     services.TokenSource
	HTTPClient *http.Client
	Driver     ui.PromptDriver
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.API.Timeout()}
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		driver:     opts.Driver,
		logger:     opts.Logger,
		output:     opts.Output,
	}

	if opts.DB != nil {
		r.resources = repositories.NewResourceRepository(opts.DB)
		r.history = repositories.NewHistoryRepository(opts.DB)
		r.sessions = repositories.NewSessionRepository(opts.DB)
		r.oidc = services.NewOIDCService(opts.Config.Credentials.OIDC, r.sessions, opts.HTTPClient, opts.Logger)
	} else {
		r.oidc = services.NewOIDCService(opts.Config.Credentials.OIDC, nil, opts.HTTPClient, opts.Logger)
	}

	switch {
	case opts.Tokens != nil:
		r.tokens = opts.Tokens
	case opts.Config.Credentials.Token != "":
		r.tokens = services.StaticToken(opts.Config.Credentials.Token)
	case opts.DB != nil && opts.Config.Credentials.OIDC.ClientID != "":
		r.tokens = r.oidc
	}

	r.api = opts.API
	if r.api == nil {
		r.api = r.newAPI(opts.Logger)
	}
	return r
}

// newAPI builds a HAL client sharing the runner's transport and credentials.
func (r *Runner) newAPI(logger *log.Logger) *services.HALService {
	return services.NewHALService(r.config.API.BaseURL, r.httpClient, r.tokens, logger)
}

// Close releases the database, if one is open.
func (r *Runner) Close() {
	if r.db == nil {
		return
	}
	if err := r.db.Close(); err != nil {
		r.logger.Warn("failed to close database", "error", err)
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, apiCommand, browseCommand, formCommand,
		dumpCommand, historyCommand, cacheCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// recorder returns a history recorder for a new browsing session, or nil without a database.
func (r *Runner) recorder() navigation.Recorder {
	if r.history == nil {
		return nil
	}
	return navigation.NewHistoryRecorder(r.history, shared.GenerateID(), r.logger)
}

// cacher returns the resource cache used by the crawler, or nil without a database.
func (r *Runner) cacher() tasks.ResourceCacher {
	if r.resources == nil {
		return nil
	}
	return repositories.NewResourceCacheAdapter(r.resources)
}

// rootPath returns the path argument, falling back to the configured API root.
func (r *Runner) rootPath(cmd *cli.Command) string {
	if p := cmd.StringArg("path"); p != "" {
		return p
	}
	if r.config.API.Root != "" {
		return r.config.API.Root
	}
	return "/"
}

func (r *Runner) requireDB() error {
	if r.db == nil {
		return fmt.Errorf("%w: database is not available, run 'halx setup database'", shared.ErrServiceUnavailable)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// writeBody writes a response body, re-indenting it when it is JSON.
func (r *Runner) writeBody(body []byte, pretty bool) error {
	if len(body) > 0 && json.Valid(body) {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return r.writeJSON(v, pretty)
		}
	}

	if _, err := r.output.Write(body); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(body) > 0 && body[len(body)-1] != '\n' {
		return r.writePlain("\n")
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
