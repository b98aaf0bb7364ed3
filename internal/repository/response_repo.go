package repository

import (
	"context"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiForms/internal/db"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
	"github.com/parisxmas/OxiDB/OxiForms/internal/oxidb"
)

const ResponsesCollection = "_responses"

type ResponseRepo struct {
	pool *db.Pool
}

func NewResponseRepo(pool *db.Pool) *ResponseRepo {
	return &ResponseRepo{pool: pool}
}

func (r *ResponseRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateCompositeIndex(ctx, ResponsesCollection, []string{"formId", "createdAt"}); err != nil {
		return err
	}
	return c.CreateUniqueIndex(ctx, ResponsesCollection, "airtableRecordId")
}

func (r *ResponseRepo) Create(ctx context.Context, resp *models.Response) (string, error) {
	doc, err := toDoc(resp)
	if err != nil {
		return "", fmt.Errorf("encode response: %w", err)
	}
	result, err := r.pool.Get().Insert(ctx, ResponsesCollection, doc)
	if err != nil {
		return "", err
	}
	return extractID(result), nil
}

// FindByFormID lists a form's responses, newest first.
func (r *ResponseRepo) FindByFormID(ctx context.Context, formID string) ([]models.Response, error) {
	docs, err := r.pool.Get().Find(ctx, ResponsesCollection, map[string]any{"formId": formID}, &oxidb.FindOptions{
		Sort: map[string]any{"createdAt": -1},
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Response, 0, len(docs))
	for _, d := range docs {
		var resp models.Response
		if err := fromDoc(d, &resp); err != nil {
			continue
		}
		out = append(out, resp)
	}
	return out, nil
}

func (r *ResponseRepo) FindByID(ctx context.Context, id string) (*models.Response, error) {
	return r.findOne(ctx, map[string]any{"_id": toNumericID(id)})
}

func (r *ResponseRepo) FindByRecordID(ctx context.Context, recordID string) (*models.Response, error) {
	return r.findOne(ctx, map[string]any{"airtableRecordId": recordID})
}

func (r *ResponseRepo) Update(ctx context.Context, id string, resp *models.Response) error {
	doc, err := toDoc(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	_, err = r.pool.Get().UpdateOne(ctx, ResponsesCollection, map[string]any{"_id": toNumericID(id)}, map[string]any{"$set": doc})
	return err
}

func (r *ResponseRepo) findOne(ctx context.Context, query map[string]any) (*models.Response, error) {
	doc, err := r.pool.Get().FindOne(ctx, ResponsesCollection, query)
	if err != nil || doc == nil {
		return nil, err
	}
	var resp models.Response
	if err := fromDoc(doc, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
