// Package application defines what mastermap commands need from the CLI
// application. Commands accept this interface instead of the concrete app so
// they can be tested against in-memory stores.
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            m, err := app.Mastermap()
//	            if err != nil {
//	                return err
//	            }
//	            res, err := m.Run(cmd.Context())
//	            // ... render res
//	        },
//	    }
//	}
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/mastermap"
	"github.com/agentstation/mastermap/pkg/blob"
	"github.com/agentstation/mastermap/pkg/tables"
)

// Application provides the dependencies commands use.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Mastermap returns an engine over the configured stores. Extra options
	// are applied after the configured ones.
	Mastermap(opts ...mastermap.Option) (mastermap.Mastermap, error)

	// BlobStore returns the configured object store backend.
	BlobStore() (blob.Store, error)

	// TableStore returns the dataset store of the configured namespace.
	TableStore() (tables.Store, error)

	// Namespace returns the blob prefix commands operate on.
	Namespace() string

	// CanonicalTables returns the configured canonical table names.
	CanonicalTables() []string

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string
}
