// Package mongostore implements the form, response and user stores on
// MongoDB. Documents use UUID string ids so they share the API shape of the
// oxidb repositories.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

const (
	collectionForms     = "forms"
	collectionResponses = "responses"
	collectionUsers     = "users"
)

type Config struct {
	URI         string
	Database    string
	Timeout     time.Duration
	MaxPoolSize uint64
}

// DB owns the mongo client shared by the three stores.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

func Connect(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetTimeout(cfg.Timeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	cctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &DB{client: client, db: client.Database(cfg.Database)}, nil
}

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func (d *DB) Forms() *FormStore         { return &FormStore{coll: d.db.Collection(collectionForms)} }
func (d *DB) Responses() *ResponseStore { return &ResponseStore{coll: d.db.Collection(collectionResponses)} }
func (d *DB) Users() *UserStore         { return &UserStore{coll: d.db.Collection(collectionUsers)} }

// findOne decodes the first match into out. It reports false with a nil
// error when nothing matched.
func findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out any) (bool, error) {
	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func newID() string {
	return uuid.NewString()
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

type FormStore struct {
	coll *mongo.Collection
}

func (s *FormStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("idx_forms_owner"),
	})
	return err
}

func (s *FormStore) Create(ctx context.Context, form *models.Form) (string, error) {
	doc := *form
	doc.ID = newID()
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (s *FormStore) FindByID(ctx context.Context, id string) (*models.Form, error) {
	var f models.Form
	ok, err := findOne(ctx, s.coll, bson.M{"_id": id}, &f)
	if !ok {
		return nil, err
	}
	return &f, nil
}

func (s *FormStore) FindByOwner(ctx context.Context, owner string) ([]models.Form, error) {
	cur, err := s.coll.Find(ctx, bson.M{"owner": owner}, newestFirst)
	if err != nil {
		return nil, err
	}
	forms := []models.Form{}
	if err := cur.All(ctx, &forms); err != nil {
		return nil, err
	}
	return forms, nil
}

func (s *FormStore) Update(ctx context.Context, id string, form *models.Form) error {
	doc := *form
	doc.ID = ""
	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": doc})
	return err
}

func (s *FormStore) Delete(ctx context.Context, id string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

type ResponseStore struct {
	coll *mongo.Collection
}

func (s *ResponseStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "formId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_responses_form"),
		},
		{
			Keys:    bson.D{{Key: "airtableRecordId", Value: 1}},
			Options: options.Index().SetName("idx_responses_record").SetUnique(true),
		},
	})
	return err
}

func (s *ResponseStore) Create(ctx context.Context, resp *models.Response) (string, error) {
	doc := *resp
	doc.ID = newID()
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (s *ResponseStore) FindByID(ctx context.Context, id string) (*models.Response, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *ResponseStore) FindByRecordID(ctx context.Context, recordID string) (*models.Response, error) {
	return s.findOne(ctx, bson.M{"airtableRecordId": recordID})
}

func (s *ResponseStore) FindByFormID(ctx context.Context, formID string) ([]models.Response, error) {
	cur, err := s.coll.Find(ctx, bson.M{"formId": formID}, newestFirst)
	if err != nil {
		return nil, err
	}
	out := []models.Response{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ResponseStore) Update(ctx context.Context, id string, resp *models.Response) error {
	doc := *resp
	doc.ID = ""
	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": doc})
	return err
}

func (s *ResponseStore) findOne(ctx context.Context, filter bson.M) (*models.Response, error) {
	var r models.Response
	ok, err := findOne(ctx, s.coll, filter, &r)
	if !ok {
		return nil, err
	}
	return &r, nil
}

type UserStore struct {
	coll *mongo.Collection
}

func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "airtableUserId", Value: 1}},
		Options: options.Index().SetName("idx_users_airtable").SetUnique(true),
	})
	return err
}

func (s *UserStore) Create(ctx context.Context, user *models.User) (string, error) {
	doc := *user
	doc.ID = newID()
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) FindByAirtableID(ctx context.Context, airtableUserID string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"airtableUserId": airtableUserID})
}

func (s *UserStore) Update(ctx context.Context, id string, user *models.User) error {
	doc := *user
	doc.ID = ""
	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": doc})
	return err
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	ok, err := findOne(ctx, s.coll, filter, &u)
	if !ok {
		return nil, err
	}
	return &u, nil
}
