// Package app wires configuration, logging and storage backends for the
// mastermap CLI and hands them to the commands.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/mastermap"
	"github.com/agentstation/mastermap/cmd/application"
	"github.com/agentstation/mastermap/internal/blob/boltstore"
	"github.com/agentstation/mastermap/internal/blob/dirstore"
	"github.com/agentstation/mastermap/internal/blob/s3store"
	"github.com/agentstation/mastermap/internal/tabular"
	"github.com/agentstation/mastermap/internal/transport"
	"github.com/agentstation/mastermap/pkg/blob"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/tables"
)

var _ application.Application = (*App)(nil)

// App holds the CLI dependencies.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Storage backend (lazy-initialized, singleton)
	mu     sync.Mutex
	blobs  blob.Store
	closer io.Closer
}

// New creates an App with configuration loaded from the environment.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	a := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	a.config = cfg

	logger := NewLogger(cfg)
	a.logger = &logger

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the --format value.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Namespace returns the configured blob prefix.
func (a *App) Namespace() string {
	return blob.NormalizePrefix(a.config.Namespace)
}

// CanonicalTables returns the configured canonical table names.
func (a *App) CanonicalTables() []string {
	return a.config.CanonicalTables
}

// BlobStore opens the configured backend on first use.
func (a *App) BlobStore() (blob.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.blobs != nil {
		return a.blobs, nil
	}
	s, closer, err := openBackend(a.config)
	if err != nil {
		return nil, errors.WrapResource("open", "store", a.config.Backend, err)
	}
	a.blobs, a.closer = s, closer
	a.logger.Debug().Str("backend", a.config.Backend).Msg("storage backend opened")
	return s, nil
}

// TableStore returns the CSV dataset store of the namespace.
func (a *App) TableStore() (tables.Store, error) {
	blobs, err := a.BlobStore()
	if err != nil {
		return nil, err
	}
	return tabular.New(blobs, a.Namespace()), nil
}

// Mastermap creates an engine from the configuration.
func (a *App) Mastermap(opts ...mastermap.Option) (mastermap.Mastermap, error) {
	blobs, err := a.BlobStore()
	if err != nil {
		return nil, err
	}
	ts, err := a.TableStore()
	if err != nil {
		return nil, err
	}
	base := []mastermap.Option{
		mastermap.WithBlobStore(blobs),
		mastermap.WithTableStore(ts),
		mastermap.WithNamespace(a.Namespace()),
		mastermap.WithCanonicalTables(a.config.CanonicalTables...),
		mastermap.WithIdentifierLength(a.config.IdentifierLength),
		mastermap.WithMaxIterations(a.config.MaxIterations),
		mastermap.WithWorkers(a.config.Workers),
	}
	if p := a.config.Pause; p.URL != "" {
		client := transport.New(transport.AuthFor(p.Header), p.Token)
		base = append(base, mastermap.WithPauser(transport.NewWebhook(p.URL, client)))
	}
	m, err := mastermap.New(append(base, opts...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "mastermap", "", err)
	}
	return m, nil
}

// Shutdown releases the storage backend.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer, a.blobs = nil, nil
	return err
}

func openBackend(cfg *Config) (blob.Store, io.Closer, error) {
	switch cfg.Backend {
	case BackendS3:
		s, err := s3store.New(s3store.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		})
		return s, nil, err
	case BackendBolt:
		s, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendDir:
		s, err := dirstore.New(cfg.DirRoot)
		return s, nil, err
	case BackendMemory:
		return blob.NewMemory(), nil, nil
	default:
		return nil, nil, errors.NewConfigError("backend", "unknown backend "+cfg.Backend, nil)
	}
}

// Option configures the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) error {
		a.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithBlobStore sets the storage backend, bypassing the configured one.
func WithBlobStore(s blob.Store) Option {
	return func(a *App) error {
		a.blobs = s
		return nil
	}
}
