package postgres

import (
	"context"

	"github.com/ieltsprep/practice-service/internal/repositories"
	"gorm.io/gorm"
)

type PostgresRepository struct {
	db      *gorm.DB
	test    repositories.TestRepository
	attempt repositories.AttemptRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &PostgresRepository{
		db:      db,
		test:    NewTestPostgreSQL(db),
		attempt: NewAttemptPostgreSQL(db),
	}
}

func (r *PostgresRepository) Test() repositories.TestRepository {
	return r.test
}

func (r *PostgresRepository) Attempt() repositories.AttemptRepository {
	return r.attempt
}

func (r *PostgresRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// applySort applies sort options with a safe default ordering.
func applySort(query *gorm.DB, sortBy, sortOrder string, allowed map[string]bool) *gorm.DB {
	if !allowed[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	return query.Order(sortBy + " " + sortOrder)
}

// applyPagination applies limit/offset with a default page size.
func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}
