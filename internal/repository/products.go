package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/schoolshop/internal/model"
)

const productColumns = `id, name, category, price, images, description, benefits, stock, sales, created_at`

// ListProducts возвращает товары каталога. Пустая категория означает все товары.
func (r *PostgresRepository) ListProducts(ctx context.Context, category model.Category) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE $1 = '' OR category = $1
		 ORDER BY id`,
		string(category),
	)
	if err != nil {
		return nil, wrap("select products", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrap("scan product", err)
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("rows error", err)
	}

	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, wrap("get product", err)
	}
	return p, nil
}

// GetProductsByIDs возвращает найденные товары, индексированные по идентификатору.
// Отсутствующие идентификаторы просто не попадают в результат.
func (r *PostgresRepository) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	res := make(map[int64]model.Product, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, wrap("select products by ids", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrap("scan product", err)
		}
		res[p.ID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("rows error", err)
	}

	return res, nil
}

// CreateProduct добавляет товар в каталог.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, category, price, images, description, benefits, stock, sales)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		p.Name, string(p.Category), p.Price, nonNil(p.Images), p.Description, nonNil(p.Benefits), p.Stock, p.Sales,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, wrap("insert product", err)
	}
	return &p, nil
}

// UpdateProduct обновляет карточку товара целиком.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p model.Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products
		 SET name = $2, category = $3, price = $4, images = $5, description = $6, benefits = $7, stock = $8
		 WHERE id = $1`,
		p.ID, p.Name, string(p.Category), p.Price, nonNil(p.Images), p.Description, nonNil(p.Benefits), p.Stock,
	)
	if err != nil {
		return wrap("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct удаляет товар. Строки прошлых заказов сохраняют название и цену.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return wrap("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p        model.Product
		category string
	)
	err := row.Scan(&p.ID, &p.Name, &category, &p.Price, &p.Images, &p.Description, &p.Benefits,
		&p.Stock, &p.Sales, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Category = model.Category(category)
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
