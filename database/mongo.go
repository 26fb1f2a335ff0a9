package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"snapshop/models"
)

// MongoStore keeps users in one collection. Subscriptions are change
// streams, so the server must run as a replica set (Atlas does).
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
}

func ConnectMongo(ctx context.Context, uri, dbName, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	users := client.Database(dbName).Collection(collection)
	_, err = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create email index: %w", err)
	}

	log.Println("✅ Connected to MongoDB")
	return &MongoStore{client: client, users: users}, nil
}

func (s *MongoStore) WatchUsers(ctx context.Context, fn func([]models.User)) error {
	// Open the stream before reading so no change slips between the two.
	stream, err := s.users.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return fmt.Errorf("watch users: %w", err)
	}
	defer stream.Close(context.Background())

	for {
		users, err := s.findUsers(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(users)

		if !stream.Next(ctx) {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch users: %w", stream.Err())
		}
		// one reload covers a burst of events
		for stream.RemainingBatchLength() > 0 {
			stream.Next(ctx)
		}
	}
}

func (s *MongoStore) WatchUser(ctx context.Context, id string, fn func(models.User)) error {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: id}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := s.users.Watch(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("watch user %s: %w", id, err)
	}
	defer stream.Close(context.Background())

	user, err := s.findUser(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	fn(user)

	for stream.Next(ctx) {
		var event struct {
			FullDocument *models.User `bson:"fullDocument"`
		}
		if err := stream.Decode(&event); err != nil {
			return fmt.Errorf("decode change event: %w", err)
		}
		if event.FullDocument == nil {
			continue
		}
		fn(normalize(*event.FullDocument))
	}

	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("watch user %s: %w", id, stream.Err())
}

func (s *MongoStore) findUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.users.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	for i := range users {
		users[i] = normalize(users[i])
	}
	return users, nil
}

func (s *MongoStore) findUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("find user %s: %w", id, err)
	}
	return normalize(user), nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user models.User) (string, error) {
	user = normalize(user)
	user.ID = primitive.NewObjectID().Hex()

	_, err := s.users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicateEmail
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return user.ID, nil
}

func (s *MongoStore) SetCart(ctx context.Context, userID string, cart []models.CartItem) error {
	return s.update(ctx, userID, bson.M{"$set": bson.M{"cart": emptyIfNil(cart)}})
}

func (s *MongoStore) AddToCart(ctx context.Context, userID string, item models.CartItem) error {
	return s.update(ctx, userID, bson.M{"$addToSet": bson.M{"cart": item}})
}

func (s *MongoStore) RemoveFromCart(ctx context.Context, userID string, item models.CartItem) error {
	return s.update(ctx, userID, bson.M{"$pull": bson.M{"cart": item}})
}

func (s *MongoStore) AddOrder(ctx context.Context, userID string, order models.Order) error {
	order.List = emptyIfNil(order.List)
	return s.update(ctx, userID, bson.M{"$addToSet": bson.M{"orders": order}})
}

func (s *MongoStore) update(ctx context.Context, userID string, update bson.M) error {
	result, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("update user %s: %w", userID, err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
