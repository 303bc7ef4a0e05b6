package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const createDish = `
INSERT INTO dishes (name, price, discount, image_url)
VALUES ($1, $2, $3, $4)
RETURNING id, name, price, discount, image_url, create_time, update_time
`

type CreateDishParams struct {
	Name     string
	Price    pgtype.Numeric
	Discount pgtype.Numeric
	ImageUrl pgtype.Text
}

func (q *Queries) CreateDish(ctx context.Context, arg CreateDishParams) (Dish, error) {
	row := q.db.QueryRow(ctx, createDish, arg.Name, arg.Price, arg.Discount, arg.ImageUrl)
	return scanDish(row)
}

const getDish = `
SELECT id, name, price, discount, image_url, create_time, update_time
FROM dishes
WHERE id = $1
`

func (q *Queries) GetDish(ctx context.Context, id int64) (Dish, error) {
	return scanDish(q.db.QueryRow(ctx, getDish, id))
}

const getDishByName = `
SELECT id, name, price, discount, image_url, create_time, update_time
FROM dishes
WHERE name = $1
`

func (q *Queries) GetDishByName(ctx context.Context, name string) (Dish, error) {
	return scanDish(q.db.QueryRow(ctx, getDishByName, name))
}

const listDishes = `
SELECT id, name, price, discount, image_url, create_time, update_time
FROM dishes
ORDER BY id
`

func (q *Queries) ListDishes(ctx context.Context) ([]Dish, error) {
	rows, err := q.db.Query(ctx, listDishes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dishes []Dish
	for rows.Next() {
		d, err := scanDish(rows)
		if err != nil {
			return nil, err
		}
		dishes = append(dishes, d)
	}
	return dishes, rows.Err()
}

const updateDish = `
UPDATE dishes
SET name = COALESCE($2, name),
    price = COALESCE($3, price),
    discount = COALESCE($4, discount),
    image_url = COALESCE($5, image_url),
    update_time = now()
WHERE id = $1
RETURNING id, name, price, discount, image_url, create_time, update_time
`

// UpdateDishParams carries only the fields to change; invalid (NULL)
// members leave the stored value untouched.
type UpdateDishParams struct {
	ID       int64
	Name     pgtype.Text
	Price    pgtype.Numeric
	Discount pgtype.Numeric
	ImageUrl pgtype.Text
}

func (q *Queries) UpdateDish(ctx context.Context, arg UpdateDishParams) (Dish, error) {
	row := q.db.QueryRow(ctx, updateDish, arg.ID, arg.Name, arg.Price, arg.Discount, arg.ImageUrl)
	return scanDish(row)
}

const deleteDish = `
DELETE FROM dishes
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteDish(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, deleteDish, id).Scan(&deleted)
	return deleted, err
}

func scanDish(row pgx.Row) (Dish, error) {
	var d Dish
	err := row.Scan(&d.ID, &d.Name, &d.Price, &d.Discount, &d.ImageUrl, &d.CreateTime, &d.UpdateTime)
	return d, err
}
