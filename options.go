package mastermap

import (
	"github.com/agentstation/mastermap/pkg/blob"
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/tables"
)

// Option is a function that configures a Mastermap instance
type Option func(*config) error

// config holds the engine configuration. Everything the engine needs is
// passed in here; nothing is read from the process environment.
type config struct {
	blobs            blob.Store
	tables           tables.Store
	namespace        string
	canonical        []string
	roles            tables.Roles
	identifierLength int
	maxIterations    int
	workers          int
	pauser           Pauser
	runID            string
}

func defaultConfig() *config {
	return &config{
		canonical:        []string{constants.UnitBasicsTable, constants.SurveyUnitBasicsTable},
		roles:            tables.DefaultRoles(),
		identifierLength: constants.IdentifierLength,
		maxIterations:    constants.MaxIterations,
		workers:          constants.DefaultWorkers,
	}
}

func (c *config) validate() error {
	if c.blobs == nil {
		return errors.NewConfigError("mastermap", "a blob store is required", nil)
	}
	if c.tables == nil {
		return errors.NewConfigError("mastermap", "a table store is required", nil)
	}
	return nil
}

// WithBlobStore sets the store holding run artifacts (reports, resolutions).
func WithBlobStore(s blob.Store) Option {
	return func(c *config) error {
		c.blobs = s
		return nil
	}
}

// WithTableStore sets the store datasets are read from and written back to.
func WithTableStore(s tables.Store) Option {
	return func(c *config) error {
		c.tables = s
		return nil
	}
}

// WithNamespace sets the blob prefix of the run, e.g. "sourcedata/census/2023/".
func WithNamespace(prefix string) Option {
	return func(c *config) error {
		c.namespace = blob.NormalizePrefix(prefix)
		return nil
	}
}

// WithCanonicalTables sets the short names of the canonical tables, in the
// order they are scanned when building the authority table.
func WithCanonicalTables(names ...string) Option {
	return func(c *config) error {
		if len(names) == 0 {
			return &errors.ValidationError{Field: "canonical", Message: "at least one table is required"}
		}
		c.canonical = names
		return nil
	}
}

// WithRoles sets how identifier and name columns are located.
func WithRoles(r tables.Roles) Option {
	return func(c *config) error {
		c.roles = r
		return nil
	}
}

// WithIdentifierLength sets the required identifier length.
func WithIdentifierLength(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return &errors.ValidationError{Field: "identifier_length", Value: n, Message: "must be positive"}
		}
		c.identifierLength = n
		return nil
	}
}

// WithMaxIterations sets the iteration cap of one invocation.
func WithMaxIterations(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return &errors.ValidationError{Field: "max_iterations", Value: n, Message: "must be positive"}
		}
		c.maxIterations = n
		return nil
	}
}

// WithWorkers sets how many datasets are reconciled concurrently.
func WithWorkers(n int) Option {
	return func(c *config) error {
		c.workers = n
		return nil
	}
}

// WithPauser sets the hook asked to pause the surrounding workflow when a
// run ends awaiting resolution.
func WithPauser(p Pauser) Option {
	return func(c *config) error {
		c.pauser = p
		return nil
	}
}

// WithRunID sets the run identifier recorded in reports. A random one is
// generated when unset.
func WithRunID(id string) Option {
	return func(c *config) error {
		c.runID = id
		return nil
	}
}
