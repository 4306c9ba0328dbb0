package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kitbuilder587/predictive-search/internal/domain"
)

type ProductRepo struct {
	db *DB
}

func NewProductRepo(db *DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Handle == "" {
		p.Handle = domain.Slugify(p.Title)
	}

	query := `
        INSERT INTO products (title, handle, body, price, image_url, available)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `

	err := r.db.Pool.QueryRow(ctx, query,
		p.Title,
		p.Handle,
		p.Body,
		p.Price,
		p.ImageURL,
		p.Available,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateHandle
		}
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

func (r *ProductRepo) GetByHandle(ctx context.Context, handle string) (*domain.Product, error) {
	query := `
        SELECT id, title, handle, body, price, image_url, available, created_at
        FROM products WHERE handle = $1
    `

	var p domain.Product
	err := r.db.Pool.QueryRow(ctx, query, handle).Scan(
		&p.ID, &p.Title, &p.Handle, &p.Body, &p.Price, &p.ImageURL, &p.Available, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by handle: %w", err)
	}
	return &p, nil
}

// SearchProducts - подстрока по названию без учета регистра, префиксные совпадения выше.
func (r *ProductRepo) SearchProducts(ctx context.Context, q string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = domain.MaxLimit
	}

	query := `
        SELECT id, title, handle, body, price, image_url, available, created_at
        FROM products
        WHERE lower(title) LIKE '%' || $1 || '%' ESCAPE '\'
        ORDER BY (lower(title) LIKE $1 || '%' ESCAPE '\') DESC, title
        LIMIT $2
    `

	rows, err := r.db.Pool.Query(ctx, query, escapeLike(strings.ToLower(strings.TrimSpace(q))), limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		var p domain.Product
		err := row.Scan(&p.ID, &p.Title, &p.Handle, &p.Body, &p.Price, &p.ImageURL, &p.Available, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
