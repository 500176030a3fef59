package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weatherdash/internal/common"
	"github.com/dmitrijs2005/weatherdash/internal/dbx"
	"github.com/dmitrijs2005/weatherdash/internal/server/models"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// SQLRepository implements Repository over dbx.DBTX. The queries run
// unchanged on PostgreSQL (pgx) and SQLite.
type SQLRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	user.Normalize()
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	rec := *user
	rec.ID = uuid.NewString()
	rec.CreatedAt = r.now().UTC().Truncate(time.Microsecond)

	query :=
		`INSERT INTO users (id, first_name, last_name, email, password_digest, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 `

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.FirstName, rec.LastName, rec.Email, rec.PasswordDigest, rec.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAccountExists
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	return &rec, nil
}

func (r *SQLRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, first_name, last_name, email, password_digest, created_at FROM users
		 WHERE email = $1
		 `

	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	return user, nil
}

func (r *SQLRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, first_name, last_name, email, password_digest, created_at FROM users
		 WHERE id = $1
		 `

	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}

	return user, nil
}

func (r *SQLRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordDigest, &user.CreatedAt); err != nil {
		return nil, err
	}
	return user, nil
}
