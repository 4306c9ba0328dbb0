package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kitbuilder587/predictive-search/internal/domain"
)

type Store interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
}

// MockStore - in-memory каталог для тестов и локального запуска без базы.
type MockStore struct {
	mu       sync.RWMutex
	products []domain.Product
	nextID   int64

	Err       error
	CallCount int
}

func NewMockStore(products ...domain.Product) *MockStore {
	s := &MockStore{}
	for _, p := range products {
		s.Add(p)
	}
	return s
}

func (s *MockStore) Add(p domain.Product) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p.ID = s.nextID
	if p.Handle == "" {
		p.Handle = domain.Slugify(p.Title)
	}
	s.products = append(s.products, p)
	return p
}

// Create как у postgres репозитория: валидация, handle из названия, уникальность handle.
func (s *MockStore) Create(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Handle == "" {
		p.Handle = domain.Slugify(p.Title)
	}

	s.mu.Lock()
	for _, existing := range s.products {
		if existing.Handle == p.Handle {
			s.mu.Unlock()
			return domain.ErrDuplicateHandle
		}
	}
	s.mu.Unlock()

	*p = s.Add(*p)
	return nil
}

// SearchProducts: подстрока без учета регистра, сначала совпадения с начала названия.
func (s *MockStore) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	s.mu.Lock()
	s.CallCount++
	err := s.Err
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var matched []domain.Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Title), q) {
			matched = append(matched, p)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		pi := strings.HasPrefix(strings.ToLower(matched[i].Title), q)
		pj := strings.HasPrefix(strings.ToLower(matched[j].Title), q)
		if pi != pj {
			return pi
		}
		return matched[i].Title < matched[j].Title
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
