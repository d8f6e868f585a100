package reconciler

import (
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/identifier"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/tables"
)

// options configures a reconciler.
type options struct {
	roles      tables.Roles
	normalizer *identifier.Normalizer
	workers    int
	onIssue    func(issues.Issue)
}

func defaultOptions() *options {
	return &options{
		roles:      tables.DefaultRoles(),
		normalizer: identifier.New(constants.IdentifierLength),
		workers:    constants.DefaultWorkers,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithRoles sets how identifier and name columns are located.
func WithRoles(roles tables.Roles) Option {
	return func(o *options) error {
		if len(roles.Identifier)+len(roles.IdentifierHints) == 0 {
			return &errors.ValidationError{
				Field:   "roles.identifier",
				Message: "at least one column name or hint is required",
			}
		}
		if len(roles.Name)+len(roles.NameHints) == 0 {
			return &errors.ValidationError{
				Field:   "roles.name",
				Message: "at least one column name or hint is required",
			}
		}
		o.roles = roles
		return nil
	}
}

// WithNormalizer sets the identifier normalizer.
func WithNormalizer(n *identifier.Normalizer) Option {
	return func(o *options) error {
		if n == nil {
			return &errors.ValidationError{
				Field:   "normalizer",
				Message: "cannot be nil",
			}
		}
		o.normalizer = n
		return nil
	}
}

// WithWorkers bounds how many datasets are reconciled at once.
func WithWorkers(n int) Option {
	return func(o *options) error {
		if n < 1 || n > constants.MaxWorkers {
			return &errors.ValidationError{
				Field:   "workers",
				Value:   n,
				Message: "must be between 1 and 64",
			}
		}
		o.workers = n
		return nil
	}
}

// WithIssueHandler registers a callback invoked for every issue raised.
// It may be called from several goroutines at once.
func WithIssueHandler(fn func(issues.Issue)) Option {
	return func(o *options) error {
		o.onIssue = fn
		return nil
	}
}
