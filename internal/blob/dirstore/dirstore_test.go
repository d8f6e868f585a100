package dirstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/mastermap/internal/blob/dirstore"
	"github.com/agentstation/mastermap/pkg/errors"
)

func TestDirStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := dirstore.New(root)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "sourcedata/census/2023/sales.csv", []byte("x")))
	require.NoError(t, s.Put(ctx, "sourcedata/census/2023/validation_report_pending.json", []byte("{}")))
	require.NoError(t, s.Put(ctx, "other.txt", []byte("o")))

	_, err = os.Stat(filepath.Join(root, "sourcedata", "census", "2023", "sales.csv"))
	require.NoError(t, err)

	keys, err := s.List(ctx, "sourcedata/census/2023/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"sourcedata/census/2023/sales.csv",
		"sourcedata/census/2023/validation_report_pending.json",
	}, keys)

	data, err := s.Get(ctx, "/other.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("o"), data)

	require.NoError(t, s.Delete(ctx, "other.txt"))
	assert.True(t, errors.IsNotFound(s.Delete(ctx, "other.txt")))
	_, err = s.Get(ctx, "other.txt")
	assert.True(t, errors.IsNotFound(err))
}

func TestDirStoreRejectsEscapingKeys(t *testing.T) {
	s, err := dirstore.New(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "../x", "a/../../x"} {
		err := s.Put(context.Background(), key, []byte("x"))
		assert.True(t, errors.IsValidationError(err), key)
	}
}
