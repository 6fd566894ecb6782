package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
)

// MongoCustomerRepository keeps customers as documents in one collection.
// Ids are ObjectIDs, exposed as hex strings.
type MongoCustomerRepository struct {
	Collection *mongo.Collection
}

// ListAll fetches every customer in whatever order the server returns them
func (r *MongoCustomerRepository) ListAll(ctx context.Context) ([]*model.Customer, error) {
	cur, err := r.Collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	customers := []*model.Customer{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		customers = append(customers, customerFromBSON(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// Create inserts c and sets c.ID to the ObjectID assigned on insert
func (r *MongoCustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	doc := bson.M(c.Document())
	doc[model.FieldCreatedAt] = c.CreatedAt

	res, err := r.Collection.InsertOne(ctx, doc)
	if err != nil {
		return err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	c.ID = oid.Hex()
	return nil
}

// Update sets the present fields of update and returns the stored document
// as it is after the write.
func (r *MongoCustomerRepository) Update(ctx context.Context, id string, update model.CustomerUpdate) (*model.Customer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, appErrors.NewInvalidCustomerID(id, err)
	}
	filter := bson.D{{Key: "_id", Value: oid}}

	var res *mongo.SingleResult
	if update.IsEmpty() {
		// an empty $set is rejected by the server
		res = r.Collection.FindOne(ctx, filter)
	} else {
		set := bson.D{}
		for k, v := range update.Fields() {
			set = append(set, bson.E{Key: k, Value: v})
		}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		res = r.Collection.FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: set}}, opts)
	}

	var doc bson.M
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErrors.NewCustomerNotFound(id)
		}
		return nil, err
	}
	return customerFromBSON(doc), nil
}

func (r *MongoCustomerRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return appErrors.NewInvalidCustomerID(id, err)
	}

	res, err := r.Collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return appErrors.NewCustomerNotFound(id)
	}
	return nil
}

func (r *MongoCustomerRepository) Ping(ctx context.Context) error {
	return r.Collection.Database().Client().Ping(ctx, readpref.Primary())
}

func customerFromBSON(doc bson.M) *model.Customer {
	var id string
	switch v := doc["_id"].(type) {
	case primitive.ObjectID:
		id = v.Hex()
	case nil:
	default:
		id = fmt.Sprint(v)
	}

	// left zero when the document has none; the JSON form then omits it
	var createdAt time.Time
	switch v := doc[model.FieldCreatedAt].(type) {
	case primitive.DateTime:
		createdAt = v.Time().UTC()
	case time.Time:
		createdAt = v.UTC()
	}

	return model.FromDocument(id, createdAt, doc)
}
