package samples

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vyrodovalexey/modboot/internal/util"
)

// IClock tells the time.
type IClock interface {
	Now() time.Time
}

// SystemClock reads the system clock.
type SystemClock struct{}

// Now returns the current time.
func (*SystemClock) Now() time.Time { return time.Now() }

// Product is a catalog entry. Price is in cents.
type Product struct {
	ID    string
	Name  string
	Price int64
}

// IRepository reads entities by ID.
type IRepository[T any] interface {
	Get(id string) (T, bool)
	All() []T
}

// IProductRepository stores products.
type IProductRepository interface {
	IRepository[Product]
	Put(p Product)
}

// MemoryProductRepository keeps products in memory.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewMemoryProductRepository creates a repository holding products.
func NewMemoryProductRepository(products ...Product) *MemoryProductRepository {
	r := &MemoryProductRepository{products: make(map[string]Product, len(products))}
	for _, p := range products {
		r.Put(p)
	}
	return r
}

// Get returns the product with the given ID.
func (r *MemoryProductRepository) Get(id string) (Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	return p, ok
}

// All returns every product ordered by ID.
func (r *MemoryProductRepository) All() []Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Put stores p, replacing any product with the same ID.
func (r *MemoryProductRepository) Put(p Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

// IPriceFormatter renders prices.
type IPriceFormatter interface {
	Format(cents int64) string
}

// EuroPriceFormatter renders prices in euros.
type EuroPriceFormatter struct{}

// Format renders cents as euros.
func (*EuroPriceFormatter) Format(cents int64) string {
	return fmt.Sprintf("%d.%02d EUR", cents/100, cents%100)
}

// IProductService answers product queries.
type IProductService interface {
	Describe(id string) (string, error)
}

// ProductService combines the repository and the price formatter.
type ProductService struct {
	Repository IProductRepository
	Formatter  IPriceFormatter
}

// Describe returns a one-line description of the product.
func (s *ProductService) Describe(id string) (string, error) {
	p, ok := s.Repository.Get(id)
	if !ok {
		return "", fmt.Errorf("product %q: %w", id, util.ErrNotFound)
	}
	return fmt.Sprintf("%s (%s)", p.Name, s.Formatter.Format(p.Price)), nil
}

// ISearchIndex finds products by name.
type ISearchIndex interface {
	Search(query string) []string
}

// InMemorySearchIndex matches product names case-insensitively.
type InMemorySearchIndex struct {
	Repository IProductRepository
}

// Search returns the IDs of the products whose name contains query.
func (i *InMemorySearchIndex) Search(query string) []string {
	query = strings.ToLower(query)
	var ids []string
	for _, p := range i.Repository.All() {
		if strings.Contains(strings.ToLower(p.Name), query) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// queryNormalizer has no exposure declaration and is never registered.
type queryNormalizer struct{}
