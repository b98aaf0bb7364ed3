package repository

import (
	"context"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiForms/internal/db"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
	"github.com/parisxmas/OxiDB/OxiForms/internal/oxidb"
)

const FormsCollection = "_forms"

type FormRepo struct {
	pool *db.Pool
}

func NewFormRepo(pool *db.Pool) *FormRepo {
	return &FormRepo{pool: pool}
}

func (r *FormRepo) EnsureIndexes(ctx context.Context) error {
	return r.pool.Get().CreateIndex(ctx, FormsCollection, "owner")
}

func (r *FormRepo) Create(ctx context.Context, form *models.Form) (string, error) {
	doc, err := toDoc(form)
	if err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}
	result, err := r.pool.Get().Insert(ctx, FormsCollection, doc)
	if err != nil {
		return "", err
	}
	return extractID(result), nil
}

// FindByOwner lists the owner's forms, newest first.
func (r *FormRepo) FindByOwner(ctx context.Context, owner string) ([]models.Form, error) {
	docs, err := r.pool.Get().Find(ctx, FormsCollection, map[string]any{"owner": owner}, &oxidb.FindOptions{
		Sort: map[string]any{"createdAt": -1},
	})
	if err != nil {
		return nil, err
	}
	forms := make([]models.Form, 0, len(docs))
	for _, d := range docs {
		var f models.Form
		if err := fromDoc(d, &f); err != nil {
			continue
		}
		forms = append(forms, f)
	}
	return forms, nil
}

// FindByID returns nil, nil when no form has the id.
func (r *FormRepo) FindByID(ctx context.Context, id string) (*models.Form, error) {
	doc, err := r.pool.Get().FindOne(ctx, FormsCollection, map[string]any{"_id": toNumericID(id)})
	if err != nil || doc == nil {
		return nil, err
	}
	var f models.Form
	if err := fromDoc(doc, &f); err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	return &f, nil
}

func (r *FormRepo) Update(ctx context.Context, id string, form *models.Form) error {
	doc, err := toDoc(form)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	_, err = r.pool.Get().UpdateOne(ctx, FormsCollection, map[string]any{"_id": toNumericID(id)}, map[string]any{"$set": doc})
	return err
}

func (r *FormRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Get().DeleteOne(ctx, FormsCollection, map[string]any{"_id": toNumericID(id)})
	return err
}
