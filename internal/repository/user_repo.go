package repository

import (
	"context"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiForms/internal/db"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

const UsersCollection = "_users"

type UserRepo struct {
	pool *db.Pool
}

func NewUserRepo(pool *db.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	return r.pool.Get().CreateUniqueIndex(ctx, UsersCollection, "airtableUserId")
}

func (r *UserRepo) FindByAirtableID(ctx context.Context, airtableUserID string) (*models.User, error) {
	return r.findOne(ctx, map[string]any{"airtableUserId": airtableUserID})
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, map[string]any{"_id": toNumericID(id)})
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) (string, error) {
	doc, err := toDoc(user)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	result, err := r.pool.Get().Insert(ctx, UsersCollection, doc)
	if err != nil {
		return "", err
	}
	return extractID(result), nil
}

func (r *UserRepo) Update(ctx context.Context, id string, user *models.User) error {
	doc, err := toDoc(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = r.pool.Get().UpdateOne(ctx, UsersCollection, map[string]any{"_id": toNumericID(id)}, map[string]any{"$set": doc})
	return err
}

func (r *UserRepo) findOne(ctx context.Context, query map[string]any) (*models.User, error) {
	doc, err := r.pool.Get().FindOne(ctx, UsersCollection, query)
	if err != nil || doc == nil {
		return nil, err
	}
	var u models.User
	if err := fromDoc(doc, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
