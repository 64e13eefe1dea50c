package processing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Details is the business metadata attached to an invoice at intake.
type Details struct {
	ClientName string
	Amount     float64
}

// Fabricator produces Details for an uploaded file. The random
// implementation stands in for real extraction.
type Fabricator interface {
	Fabricate(ctx context.Context, fileName string) (Details, error)
}

// Catalog is the pool placeholder details are drawn from.
type Catalog struct {
	Clients   []string `yaml:"clients"`
	MinAmount int64    `yaml:"minAmount"`
	MaxAmount int64    `yaml:"maxAmount"` // exclusive
}

// DefaultCatalog returns the built-in client list and a 500-10500 amount range.
func DefaultCatalog() Catalog {
	return Catalog{
		Clients:   []string{"Acme Corp", "TechStart Inc", "Global Solutions", "Blue Ocean Ltd", "Metro Dynamics"},
		MinAmount: 500,
		MaxAmount: 10500,
	}
}

// LoadCatalog reads a YAML catalog. Missing fields keep their defaults.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}

	c := DefaultCatalog()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate rejects catalogs that cannot produce details.
func (c Catalog) Validate() error {
	if len(c.Clients) == 0 {
		return fmt.Errorf("catalog: at least one client is required")
	}
	if c.MinAmount < 0 {
		return fmt.Errorf("catalog: minAmount must not be negative")
	}
	if c.MaxAmount <= c.MinAmount {
		return fmt.Errorf("catalog: maxAmount must be greater than minAmount")
	}
	return nil
}

// RandomFabricator draws a client and a whole-number amount from its catalog.
type RandomFabricator struct {
	catalog Catalog
	mu      sync.Mutex
	rng     *rand.Rand
}

// NewRandomFabricator creates a fabricator. A nil rng uses a random seed.
func NewRandomFabricator(c Catalog, rng *rand.Rand) (*RandomFabricator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomFabricator{catalog: c, rng: rng}, nil
}

func (f *RandomFabricator) Fabricate(_ context.Context, _ string) (Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	client := f.catalog.Clients[f.rng.IntN(len(f.catalog.Clients))]
	amount := f.catalog.MinAmount + f.rng.Int64N(f.catalog.MaxAmount-f.catalog.MinAmount)

	return Details{ClientName: client, Amount: float64(amount)}, nil
}

var _ Fabricator = (*RandomFabricator)(nil)
