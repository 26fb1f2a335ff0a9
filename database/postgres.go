package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"snapshop/models"
)

const userChannel = "user_documents"

// PostgresStore keeps each user as a jsonb document. A trigger publishes the
// id of every changed row on userChannel, which drives the subscriptions.
type PostgresStore struct {
	db *pgxpool.Pool
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id  TEXT PRIMARY KEY,
		doc JSONB NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users ((doc->>'email'))`,
	`CREATE OR REPLACE FUNCTION notify_user_document() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('` + userChannel + `', NEW.id);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS users_notify ON users`,
	`CREATE TRIGGER users_notify AFTER INSERT OR UPDATE ON users
		FOR EACH ROW EXECUTE FUNCTION notify_user_document()`,
}

func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{db: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("✅ Connected to PostgreSQL")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// listen runs reload once, then again for every notification that passes accept.
func (s *PostgresStore) listen(ctx context.Context, accept func(payload string) bool, reload func() error) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("acquire listener: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+userChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer conn.Exec(context.Background(), "UNLISTEN "+userChannel)

	if err := reload(); err != nil {
		return err
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		if !accept(n.Payload) {
			continue
		}
		if err := reload(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (s *PostgresStore) WatchUsers(ctx context.Context, fn func([]models.User)) error {
	return s.listen(ctx, func(string) bool { return true }, func() error {
		users, err := s.findUsers(ctx)
		if err != nil {
			return err
		}
		fn(users)
		return nil
	})
}

func (s *PostgresStore) WatchUser(ctx context.Context, id string, fn func(models.User)) error {
	return s.listen(ctx, func(payload string) bool { return payload == id }, func() error {
		user, err := s.findUser(ctx, id)
		if err != nil {
			return err
		}
		fn(user)
		return nil
	})
}

func (s *PostgresStore) findUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.Query(ctx, "SELECT id, doc FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user, err := decodeUserDoc(id, doc)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) findUser(ctx context.Context, id string) (models.User, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, "SELECT doc FROM users WHERE id = $1", id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return decodeUserDoc(id, doc)
}

func decodeUserDoc(id string, doc []byte) (models.User, error) {
	var user models.User
	if err := json.Unmarshal(doc, &user); err != nil {
		return models.User{}, fmt.Errorf("decode user %s: %w", id, err)
	}
	user.ID = id
	return normalize(user), nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user models.User) (string, error) {
	user = normalize(user)
	user.ID = ""
	doc, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(ctx, "INSERT INTO users (id, doc) VALUES ($1, $2::jsonb)", id, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrDuplicateEmail
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) SetCart(ctx context.Context, userID string, cart []models.CartItem) error {
	return s.exec(ctx, userID,
		`UPDATE users SET doc = jsonb_set(doc, '{cart}', $2::jsonb) WHERE id = $1`,
		emptyIfNil(cart))
}

func (s *PostgresStore) AddToCart(ctx context.Context, userID string, item models.CartItem) error {
	return s.exec(ctx, userID, arrayUnionSQL("cart"), item)
}

func (s *PostgresStore) RemoveFromCart(ctx context.Context, userID string, item models.CartItem) error {
	return s.exec(ctx, userID,
		`UPDATE users SET doc = jsonb_set(doc, '{cart}', COALESCE(
			(SELECT jsonb_agg(e) FROM jsonb_array_elements(COALESCE(doc->'cart', '[]'::jsonb)) e WHERE e <> $2::jsonb),
			'[]'::jsonb))
		WHERE id = $1`,
		item)
}

func (s *PostgresStore) AddOrder(ctx context.Context, userID string, order models.Order) error {
	order.List = emptyIfNil(order.List)
	return s.exec(ctx, userID, arrayUnionSQL("orders"), order)
}

// jsonb equality is structural, which gives the same semantics as a
// Firestore arrayUnion.
func arrayUnionSQL(field string) string {
	return `UPDATE users SET doc = jsonb_set(doc, '{` + field + `}',
		CASE WHEN EXISTS (SELECT 1 FROM jsonb_array_elements(COALESCE(doc->'` + field + `', '[]'::jsonb)) e WHERE e = $2::jsonb)
			THEN doc->'` + field + `'
			ELSE COALESCE(doc->'` + field + `', '[]'::jsonb) || jsonb_build_array($2::jsonb)
		END)
	WHERE id = $1`
}

func (s *PostgresStore) exec(ctx context.Context, userID, sql string, value any) error {
	arg, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}

	tag, err := s.db.Exec(ctx, sql, userID, arg)
	if err != nil {
		return fmt.Errorf("update user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.db.Close()
	return nil
}
