package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/kitbuilder587/predictive-search/internal/domain"
)

//go:embed seed_products.json
var seedProductsJSON []byte

type SeedProduct struct {
	Title     string `json:"title"`
	Handle    string `json:"handle"`
	Body      string `json:"body"`
	Price     string `json:"price"`
	Image     string `json:"image"`
	Available bool   `json:"available"`
}

type Creator interface {
	Create(ctx context.Context, p *domain.Product) error
}

// ImportSeed заливает демо-каталог. Уже существующие handle пропускаются.
func ImportSeed(ctx context.Context, repo Creator, logger *zap.Logger) (int, error) {
	var seeds []SeedProduct
	if err := json.Unmarshal(seedProductsJSON, &seeds); err != nil {
		return 0, err
	}

	imported := 0
	for _, seed := range seeds {
		p := &domain.Product{
			Title:     seed.Title,
			Handle:    seed.Handle,
			Body:      seed.Body,
			Price:     seed.Price,
			ImageURL:  seed.Image,
			Available: seed.Available,
		}

		if err := repo.Create(ctx, p); err != nil {
			if errors.Is(err, domain.ErrDuplicateHandle) {
				continue
			}
			if ctx.Err() != nil {
				return imported, ctx.Err()
			}
			logger.Warn("failed to import seed product",
				zap.Error(err),
				zap.String("title", seed.Title),
			)
			continue
		}
		imported++
	}

	logger.Info("seed products imported", zap.Int("count", imported))

	return imported, nil
}
