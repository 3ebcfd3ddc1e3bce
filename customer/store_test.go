package customer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "customers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SeedAndLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx))

	rec, err := s.Lookup(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), rec.ID)
	assert.Equal(t, HashEmail("alice@example.com"), rec.EmailSHA256)
	assert.Equal(t, "***-**01", rec.PhoneMasked)
	assert.Equal(t, "VIP customer", rec.Notes)
	assert.NotContains(t, rec.String(), "alice")
}

func TestStore_LookupMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Lookup(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SeedIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, 7, "bob@example.com", "555-0199", ""))
	require.NoError(t, s.Seed(ctx))
	require.NoError(t, s.Seed(ctx))

	_, err := s.Lookup(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Lookup(ctx, 12345)
	assert.NoError(t, err)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestHashEmail_Normalizes(t *testing.T) {
	assert.Equal(t, HashEmail("alice@example.com"), HashEmail("  Alice@Example.com "))
	assert.Len(t, HashEmail("x"), 64)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "***-**01", MaskPhone("555-0101"))
	assert.Equal(t, "***-**42", MaskPhone("(0) 42"))
	assert.Equal(t, "***", MaskPhone("7"))
	assert.Equal(t, "***", MaskPhone(""))
}
