// Package tabular implements tables.Store as CSV objects in a blob store.
package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/agentstation/mastermap/pkg/blob"
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/tables"
)

var _ tables.Store = (*Store)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Store reads and writes the CSV datasets below one namespace.
type Store struct {
	blobs     blob.Store
	namespace string
	comma     rune
}

// Option configures a Store.
type Option func(*Store)

// WithComma sets the field delimiter (default ',').
func WithComma(r rune) Option {
	return func(s *Store) { s.comma = r }
}

// New creates a Store over the datasets under namespace.
func New(blobs blob.Store, namespace string, opts ...Option) *Store {
	s := &Store{
		blobs:     blobs,
		namespace: blob.NormalizePrefix(namespace),
		comma:     ',',
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List implements tables.Store. Only objects directly below the namespace
// with a .csv extension are datasets.
func (s *Store) List(ctx context.Context) ([]tables.Handle, error) {
	keys, err := s.blobs.List(ctx, s.namespace)
	if err != nil {
		return nil, err
	}
	var handles []tables.Handle
	for _, key := range keys {
		rel := strings.TrimPrefix(key, s.namespace)
		if strings.Contains(rel, "/") || !strings.EqualFold(path.Ext(rel), constants.CSVExtension) {
			continue
		}
		handles = append(handles, tables.Handle{ID: tables.NormalizeName(key), Key: key})
	}
	return handles, nil
}

// Read implements tables.Store. The first record is the header. A leading
// UTF-8 byte order mark is dropped. Short records are padded; records with
// non-blank cells beyond the header are rejected, since writing the table
// back would lose them.
func (s *Store) Read(ctx context.Context, h tables.Handle) (*tables.Table, error) {
	data, err := s.blobs.Get(ctx, h.Key)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = s.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return tables.New(h), nil
	}
	if err != nil {
		return nil, errors.WrapParse("csv", h.Key, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := tables.New(h, header...)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapParse("csv", h.Key, err)
		}
		if extra := rec[min(len(rec), len(header)):]; strings.TrimSpace(strings.Join(extra, "")) != "" {
			line, _ := r.FieldPos(len(header))
			return nil, &errors.ParseError{
				Format:  "csv",
				File:    h.Key,
				Line:    line,
				Message: fmt.Sprintf("%d fields, header has %d", len(rec), len(header)),
			}
		}
		t.Append(rec...)
	}
	return t, nil
}

// Write implements tables.Store.
func (s *Store) Write(ctx context.Context, t *tables.Table) error {
	if t == nil {
		return errors.NewValidationError("table", nil, "cannot be nil")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = s.comma
	if err := w.Write(t.Columns); err != nil {
		return errors.WrapIO("write", t.Key, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return errors.WrapIO("write", t.Key, err)
	}
	return s.blobs.Put(ctx, t.Key, buf.Bytes())
}
