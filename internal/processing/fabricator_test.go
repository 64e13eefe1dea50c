package processing

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomFabricator_DrawsFromCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	f, err := NewRandomFabricator(catalog, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		d, err := f.Fabricate(context.Background(), "x.pdf")
		require.NoError(t, err)
		assert.Contains(t, catalog.Clients, d.ClientName)
		assert.GreaterOrEqual(t, d.Amount, 500.0)
		assert.Less(t, d.Amount, 10500.0)
		assert.Equal(t, float64(int64(d.Amount)), d.Amount, "amounts are whole numbers")
	}
}

func TestNewRandomFabricator_RejectsBadCatalog(t *testing.T) {
	_, err := NewRandomFabricator(Catalog{MinAmount: 1, MaxAmount: 2}, nil)
	assert.Error(t, err)

	_, err = NewRandomFabricator(Catalog{Clients: []string{"A"}, MinAmount: 10, MaxAmount: 10}, nil)
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()

	t.Run("overrides clients and keeps default range", func(t *testing.T) {
		path := filepath.Join(dir, "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte("clients:\n  - Initech\n  - Umbrella\n"), 0644))

		c, err := LoadCatalog(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"Initech", "Umbrella"}, c.Clients)
		assert.Equal(t, int64(500), c.MinAmount)
		assert.Equal(t, int64(10500), c.MaxAmount)
	})

	t.Run("invalid range", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("minAmount: 900\nmaxAmount: 100\n"), 0644))

		_, err := LoadCatalog(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
