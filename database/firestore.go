package database

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"snapshop/models"
)

// FirestoreStore keeps users in a Firestore collection. Document ids are
// assigned by Firestore.
type FirestoreStore struct {
	client *firestore.Client
	users  *firestore.CollectionRef
}

func ConnectFirestore(ctx context.Context, projectID, credentialsFile, collection string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	log.Println("✅ Connected to Firestore")
	return &FirestoreStore{client: client, users: client.Collection(collection)}, nil
}

func (s *FirestoreStore) WatchUsers(ctx context.Context, fn func([]models.User)) error {
	it := s.users.Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch users: %w", err)
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("read users snapshot: %w", err)
		}

		users := make([]models.User, 0, len(docs))
		for _, doc := range docs {
			user, err := decodeFirestoreUser(doc)
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		fn(users)
	}
}

func (s *FirestoreStore) WatchUser(ctx context.Context, id string, fn func(models.User)) error {
	it := s.users.Doc(id).Snapshots(ctx)
	defer it.Stop()

	for {
		doc, err := it.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch user %s: %w", id, err)
		}
		if !doc.Exists() {
			continue
		}

		user, err := decodeFirestoreUser(doc)
		if err != nil {
			return err
		}
		fn(user)
	}
}

func decodeFirestoreUser(doc *firestore.DocumentSnapshot) (models.User, error) {
	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return models.User{}, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
	}
	user.ID = doc.Ref.ID
	return normalize(user), nil
}

// CreateUser does not enforce unique emails; Firestore has no unique
// indexes, the storefront checks its cached user list instead.
func (s *FirestoreStore) CreateUser(ctx context.Context, user models.User) (string, error) {
	ref, _, err := s.users.Add(ctx, normalize(user))
	if err != nil {
		return "", fmt.Errorf("add user: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) SetCart(ctx context.Context, userID string, cart []models.CartItem) error {
	return s.update(ctx, userID, "cart", emptyIfNil(cart))
}

func (s *FirestoreStore) AddToCart(ctx context.Context, userID string, item models.CartItem) error {
	return s.update(ctx, userID, "cart", firestore.ArrayUnion(item))
}

func (s *FirestoreStore) RemoveFromCart(ctx context.Context, userID string, item models.CartItem) error {
	return s.update(ctx, userID, "cart", firestore.ArrayRemove(item))
}

func (s *FirestoreStore) AddOrder(ctx context.Context, userID string, order models.Order) error {
	order.List = emptyIfNil(order.List)
	return s.update(ctx, userID, "orders", firestore.ArrayUnion(order))
}

func (s *FirestoreStore) update(ctx context.Context, userID, path string, value interface{}) error {
	_, err := s.users.Doc(userID).Update(ctx, []firestore.Update{{Path: path, Value: value}})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user %s: %w", userID, err)
	}
	return nil
}

func (s *FirestoreStore) Close(ctx context.Context) error {
	return s.client.Close()
}
