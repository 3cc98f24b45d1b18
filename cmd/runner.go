package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/desertthunder/tutorx/internal/models"
	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/repositories"
	"github.com/desertthunder/tutorx/internal/services"
	"github.com/desertthunder/tutorx/internal/session"
	"github.com/desertthunder/tutorx/internal/shared"
	"github.com/desertthunder/tutorx/internal/tasks"
)

// sessionJar is the part of the persistent cookie jar the auth commands use.
type sessionJar interface {
	Lookup(u *url.URL, name string) (*models.SessionCookie, error)
	Import(u *url.URL, cookies []*http.Cookie)
	Clear(u *url.URL) error
}

// rawGetter is implemented by clients that can issue an arbitrary GET.
type rawGetter interface {
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	api         services.Client
	store       *session.Store
	jar         sessionJar
	exports     tasks.ExportRecorder
	db          *sql.DB
	logger      *log.Logger
	input       io.Reader
	output      io.Writer
	openBrowser func(url string) error
	isTerminal  func() bool
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Dependencies left nil are built from the configuration by [Runner.bootstrap].
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	API         services.Client
	Store       *session.Store
	Jar         sessionJar
	Exports     tasks.ExportRecorder
	Logger      *log.Logger
	Input       io.Reader
	Output      io.Writer
	OpenBrowser func(url string) error
	IsTerminal  func() bool
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.IsTerminal == nil {
		opts.IsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	}
	if opts.Store == nil && opts.API != nil {
		opts.Store = session.NewStore(opts.API, nil, opts.Logger)
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		api:         opts.API,
		store:       opts.Store,
		jar:         opts.Jar,
		exports:     opts.Exports,
		logger:      opts.Logger,
		input:       opts.Input,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
		isTerminal:  opts.IsTerminal,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, logoutCommand, whoamiCommand, authCommand,
		listCommand, showCommand, editCommand, uploadCommand, exportCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// bootstrap loads configuration and wires the backend client, cookie jar and session store.
//
// It runs before every command. Dependencies injected through [RunnerOpts] are kept.
func (r *Runner) bootstrap(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}
	if err := shared.LoadEnv(r.config, cmd.String("env-file")); err != nil {
		return ctx, err
	}
	if err := r.config.Validate(); err != nil {
		return ctx, err
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	if r.api != nil {
		return ctx, nil
	}
	return ctx, r.openBackend()
}

// openBackend opens the local database and builds the cookie-carrying API client on top of it.
func (r *Runner) openBackend() error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	jar, err := repositories.NewPersistentJar(repositories.NewCookieRepository(db), r.logger)
	if err != nil {
		db.Close()
		return err
	}

	api := services.NewAPIService(r.config.API.BaseURL, services.NewHTTPClient(jar))
	baseURL, err := url.Parse(api.BaseURL())
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	r.db = db
	r.api = api
	r.jar = jar
	r.exports = repositories.NewExportRepository(db)
	r.store = session.NewStore(api, func() error { return jar.Clear(baseURL) }, r.logger)
	return nil
}

// close releases the database opened by bootstrap.
func (r *Runner) close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// baseURL returns the parsed backend root.
func (r *Runner) baseURL() (*url.URL, error) {
	base := r.config.API.BaseURL
	if api, ok := r.api.(*services.APIService); ok {
		base = api.BaseURL()
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	return u, nil
}

// requireSession resolves the session and consults the route guard for route.
//
// Protected routes fail with [shared.ErrNotAuthenticated] when the guard redirects.
func (r *Runner) requireSession(ctx context.Context, route nav.Route) error {
	if r.api == nil || r.store == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrServiceUnavailable)
	}

	r.store.Init(ctx)
	decision := nav.Guard(r.store.State(), route)
	switch decision.Action {
	case nav.Render:
		return nil
	case nav.Redirect:
		return fmt.Errorf("%w: run 'tutorx login' first", shared.ErrNotAuthenticated)
	default:
		return fmt.Errorf("%w: session check did not complete", shared.ErrServiceUnavailable)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
