package database

import (
	"context"

	"github.com/google/uuid"
)

const getAdminByUsername = `
SELECT id, username, hashed_password, created_at
FROM admins
WHERE username = $1
`

func (q *Queries) GetAdminByUsername(ctx context.Context, username string) (Admin, error) {
	row := q.db.QueryRow(ctx, getAdminByUsername, username)
	var a Admin
	err := row.Scan(&a.ID, &a.Username, &a.HashedPassword, &a.CreatedAt)
	return a, err
}

const getAdminByID = `
SELECT id, username, hashed_password, created_at
FROM admins
WHERE id = $1
`

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (Admin, error) {
	row := q.db.QueryRow(ctx, getAdminByID, id)
	var a Admin
	err := row.Scan(&a.ID, &a.Username, &a.HashedPassword, &a.CreatedAt)
	return a, err
}

const createAdmin = `
INSERT INTO admins (username, hashed_password)
VALUES ($1, $2)
ON CONFLICT (username) DO UPDATE SET hashed_password = EXCLUDED.hashed_password
RETURNING id, username, hashed_password, created_at
`

type CreateAdminParams struct {
	Username       string
	HashedPassword string
}

func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (Admin, error) {
	row := q.db.QueryRow(ctx, createAdmin, arg.Username, arg.HashedPassword)
	var a Admin
	err := row.Scan(&a.ID, &a.Username, &a.HashedPassword, &a.CreatedAt)
	return a, err
}
