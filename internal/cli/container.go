package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/romanslonov/todoapp/internal/backend"
	"github.com/romanslonov/todoapp/internal/backend/fsblob"
	"github.com/romanslonov/todoapp/internal/backend/pgdoc"
	"github.com/romanslonov/todoapp/internal/backend/restdoc"
	"github.com/romanslonov/todoapp/internal/backend/sqldoc"
	"github.com/romanslonov/todoapp/internal/config"
	"github.com/romanslonov/todoapp/internal/credential"
	"github.com/romanslonov/todoapp/internal/logging"
	"github.com/romanslonov/todoapp/internal/repository"
	"github.com/romanslonov/todoapp/internal/state"
)

// tokenEnvVar overrides the keyring lookup for the remote backend token.
const tokenEnvVar = "TODOAPP_TOKEN"

// Container holds the wired application dependencies for commands.
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Docs   backend.DocumentStore
	Blobs  backend.BlobStore
	Store  *state.Store
	Repo   *repository.Repository

	closers []io.Closer
}

// Build loads configuration and wires the backends, state store, and
// repository. The caller must Close the container when done.
func Build(ctx context.Context, cfgPath string) (*Container, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(config.Dir(), logging.ParseLevel(cfg.Log.Level))
	if err != nil {
		// Logging must never keep the app from starting.
		logger = logging.Discard()
		logCloser = nil
	}

	c := &Container{Config: cfg, Logger: logger}
	if logCloser != nil {
		c.closers = append(c.closers, logCloser)
	}

	if err := c.openBackends(ctx); err != nil {
		c.Close()
		return nil, err
	}

	c.Store = state.NewStore()
	c.Repo = repository.New(c.Docs, c.Blobs, c.Store)
	c.Repo.SetCollection(cfg.Backend.Collection)
	return c, nil
}

// openBackends opens the document and blob stores for the configured driver.
func (c *Container) openBackends(ctx context.Context) error {
	cfg := c.Config

	switch cfg.Backend.Driver {
	case config.DriverSQLite:
		docs, err := sqldoc.Open(cfg.Backend.Path)
		if err != nil {
			return err
		}
		c.Docs = docs
		c.closers = append(c.closers, docs)

	case config.DriverPostgres:
		docs, err := pgdoc.Open(ctx, cfg.Backend.DSN)
		if err != nil {
			return err
		}
		c.Docs = docs
		c.closers = append(c.closers, closerFunc(func() error {
			docs.Close()
			return nil
		}))

	case config.DriverRemote:
		token := os.Getenv(tokenEnvVar)
		if token == "" {
			token, _ = credential.Get(cfg.Backend.TokenKey)
		}
		client := restdoc.NewClient(cfg.Backend.BaseURL, token)
		c.Docs = restdoc.NewDocumentStore(client)
		c.Blobs = restdoc.NewBlobStore(client)
		return nil

	default:
		return fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}

	// Local document backends pair with local blob storage.
	blobs, err := fsblob.New(cfg.Files.Dir)
	if err != nil {
		return err
	}
	c.Blobs = blobs
	return nil
}

// Close releases every resource the container opened.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i].Close()
	}
	c.closers = nil
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }
