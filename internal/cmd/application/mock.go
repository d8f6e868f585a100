// Package application provides a test double for the command application
// interface.
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/mastermap"
	"github.com/agentstation/mastermap/cmd/application"
	"github.com/agentstation/mastermap/pkg/blob"
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/tables"
)

var _ application.Application = (*Mock)(nil)

// Mock implements application.Application over in-memory stores. Function
// fields override the defaults.
//
//	mock := application.NewMock(blob.NewMemory(), tables.NewMemoryStore(t611, sales))
//	cmd := reconcile.NewCommand(mock)
type Mock struct {
	Blobs     blob.Store
	Tables    tables.Store
	NS        string
	Canonical []string
	Format    string
	Log       *zerolog.Logger

	MastermapFunc func(opts ...mastermap.Option) (mastermap.Mastermap, error)
}

// NewMock returns a Mock over the given stores with default settings.
func NewMock(blobs blob.Store, ts tables.Store) *Mock {
	return &Mock{
		Blobs:     blobs,
		Tables:    ts,
		Canonical: []string{constants.UnitBasicsTable, constants.SurveyUnitBasicsTable},
		Format:    "json",
	}
}

// Mastermap returns an engine over the mock stores.
func (m *Mock) Mastermap(opts ...mastermap.Option) (mastermap.Mastermap, error) {
	if m.MastermapFunc != nil {
		return m.MastermapFunc(opts...)
	}
	base := []mastermap.Option{
		mastermap.WithBlobStore(m.Blobs),
		mastermap.WithTableStore(m.Tables),
		mastermap.WithNamespace(m.NS),
		mastermap.WithCanonicalTables(m.Canonical...),
	}
	return mastermap.New(append(base, opts...)...)
}

// BlobStore returns the mock blob store.
func (m *Mock) BlobStore() (blob.Store, error) {
	return m.Blobs, nil
}

// TableStore returns the mock table store.
func (m *Mock) TableStore() (tables.Store, error) {
	return m.Tables, nil
}

// Namespace returns the mock namespace.
func (m *Mock) Namespace() string {
	return m.NS
}

// CanonicalTables returns the mock canonical table names.
func (m *Mock) CanonicalTables() []string {
	return m.Canonical
}

// Logger returns the mock logger or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.Log != nil {
		return m.Log
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the mock output format.
func (m *Mock) OutputFormat() string {
	return m.Format
}

// Version returns "dev".
func (m *Mock) Version() string {
	return "dev"
}
