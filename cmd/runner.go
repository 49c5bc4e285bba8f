package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/repositories"
	"github.com/desertthunder/prisync/internal/services"
	"github.com/desertthunder/prisync/internal/shared"
	"github.com/desertthunder/prisync/internal/tasks"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	store      tasks.TaskStore
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	lookupEnv  func(string) (string, bool)
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Store is built from the configured Asana credentials in [Runner.Before].
type RunnerOpts struct {
	Config     *shared.Config
	Store      tasks.TaskStore
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	LookupEnv  func(string) (string, bool)
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
		opts.HTTPClient = http.DefaultClient
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	return &Runner{
		config:     opts.Config,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		lookupEnv:  opts.LookupEnv,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, syncCommand, inspectCommand, historyCommand, deliveriesCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads configuration for every command.
//
// A missing config file falls back to the embedded defaults.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := r.configure(cmd.String("config"), cmd.IsSet("config")); err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

func (r *Runner) configure(path string, explicit bool) error {
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
		}
		r.config = config
		r.logger.Debug("loaded config", "path", path)
	} else if explicit {
		r.logger.Warn("config file not found, using defaults", "path", path, "error", shared.ErrMissingConfig)
	}

	if err := r.config.ApplyEnv(r.lookupEnv); err != nil {
		return err
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))

	if r.store == nil && r.config.Credentials.Asana.AccessToken != "" {
		svc, err := services.NewAsanaService(services.AsanaOpts{
			AccessToken:       r.config.Credentials.Asana.AccessToken,
			BaseURL:           r.config.Credentials.Asana.BaseURL,
			RequestsPerMinute: r.config.Credentials.Asana.RequestsPerMinute,
			HTTPClient:        r.httpClient,
		})
		if err != nil {
			return err
		}
		r.store = svc
	}

	return nil
}

func (r *Runner) requireStore() error {
	if r.store == nil {
		return fmt.Errorf("%w: set credentials.asana.access_token or ASANA_ACCESS_TOKEN", shared.ErrMissingCredentials)
	}
	return nil
}

// policy resolves the --policy flag, falling back to the configured policy.
func (r *Runner) policy(cmd *cli.Command) (models.Policy, error) {
	if cmd.IsSet("policy") {
		p, err := models.ParsePolicy(cmd.String("policy"))
		if err != nil {
			return p, fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
		}
		return p, nil
	}
	return r.config.SyncPolicy()
}

// openAudit opens the audit database and returns a recorder for it.
//
// Both are nil when the database is disabled. The caller closes the database.
func (r *Runner) openAudit(ctx context.Context) (*sql.DB, tasks.Recorder, error) {
	if !r.config.Database.Enabled {
		return nil, nil, nil
	}

	db, err := shared.OpenDatabase(ctx, r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	recorder := repositories.NewAuditRecorder(
		repositories.NewDeliveryRepository(db),
		repositories.NewSyncRecordRepository(db),
	)
	return db, recorder, nil
}

// openAuditForRead opens the audit database for the read-only commands, which need it enabled.
func (r *Runner) openAuditForRead(ctx context.Context) (*sql.DB, error) {
	if !r.config.Database.Enabled {
		return nil, fmt.Errorf("%w: database.enabled is false", shared.ErrInvalidConfig)
	}
	return shared.OpenDatabase(ctx, r.config.Database)
}

func (r *Runner) newSyncer(policy models.Policy, recorder tasks.Recorder) *tasks.Syncer {
	return tasks.NewSyncer(tasks.SyncerOpts{
		Store:    r.store,
		Policy:   policy,
		Logger:   r.logger,
		Recorder: recorder,
	})
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

	return r.writeBytes(append(output, '\n'))
}

func (r *Runner) writePlain(format string, args ...any) error {
	return r.writeBytes([]byte(fmt.Sprintf(format, args...)))
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// closeDB closes db when it is non-nil, logging failures.
func (r *Runner) closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		r.logger.Warn("failed to close database", "error", err)
	}
}
