package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	inErrors "github.com/Alturino/storefront/user/internal/errors"
)

const uniqueViolation = "23505"

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const insertUser = `-- name: InsertUser :one
INSERT INTO users (id, email, password, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, email, password, created_at, updated_at
`

type InsertUserParams struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Queries) InsertUser(c context.Context, arg InsertUserParams) (User, error) {
	row := q.db.QueryRow(c, insertUser,
		arg.ID,
		arg.Email,
		arg.Password,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Password, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, fmt.Errorf("%w: %w", inErrors.ErrEmailExist, err)
		}
		return User{}, err
	}
	return i, nil
}

const findUserByEmail = `-- name: FindUserByEmail :one
SELECT id, email, password, created_at, updated_at FROM users WHERE email = $1
`

func (q *Queries) FindUserByEmail(c context.Context, email string) (User, error) {
	row := q.db.QueryRow(c, findUserByEmail, email)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Password, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: %w", inErrors.ErrUserNotFound, err)
	}
	return i, err
}

const findUserById = `-- name: FindUserById :one
SELECT id, email, password, created_at, updated_at FROM users WHERE id = $1
`

func (q *Queries) FindUserById(c context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(c, findUserById, id)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Password, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: %w", inErrors.ErrUserNotFound, err)
	}
	return i, err
}
