package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable with DB_DRIVER.
const (
	DriverMongo     = "mongo"
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
	DriverMemory    = "memory"
)

type Config struct {
	Port     string
	DBDriver string

	Mongo struct {
		URI        string
		DBName     string
		Collection string
	}
	Firestore struct {
		ProjectID       string
		CredentialsFile string
		Collection      string
	}
	DatabaseURL string

	JWTSecret     string
	SessionTTL    time.Duration
	SessionIdle   time.Duration
	SessionDir    string
	HashPasswords bool
	DBTimeout     time.Duration

	CatalogURL   string
	CatalogToken string
	CatalogFile  string
	AllowOrigins []string
}

// LoadEnv reads .env into the environment when the file exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, using environment variables")
	}
}

func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:         GetEnv("PORT", "8080"),
		DBDriver:     GetEnv("DB_DRIVER", DriverMongo),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		SessionDir:   os.Getenv("SESSION_DIR"),
		CatalogURL:   os.Getenv("CATALOG_URL"),
		CatalogToken: os.Getenv("CATALOG_TOKEN"),
		CatalogFile:  os.Getenv("CATALOG_FILE"),
	}
	collection := GetEnv("USER_COLLECTION", "users")

	cfg.Mongo.URI = os.Getenv("MONGO_URI")
	cfg.Mongo.DBName = os.Getenv("DB_NAME")
	cfg.Mongo.Collection = collection
	cfg.Firestore.ProjectID = os.Getenv("FIRESTORE_PROJECT_ID")
	cfg.Firestore.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	cfg.Firestore.Collection = collection

	switch cfg.DBDriver {
	case DriverMongo:
		if cfg.Mongo.URI == "" || cfg.Mongo.DBName == "" {
			return nil, fmt.Errorf("MONGO_URI and DB_NAME must be set")
		}
	case DriverFirestore:
		if cfg.Firestore.ProjectID == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT_ID must be set")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	var err error
	if cfg.SessionTTL, err = duration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionIdle, err = duration("SESSION_IDLE", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DBTimeout, err = duration("DB_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	switch hashing := GetEnv("PASSWORD_HASHING", "bcrypt"); hashing {
	case "bcrypt":
		cfg.HashPasswords = true
	case "plain":
		cfg.HashPasswords = false
	default:
		return nil, fmt.Errorf("PASSWORD_HASHING must be bcrypt or plain, got %q", hashing)
	}

	for _, origin := range strings.Split(os.Getenv("ALLOW_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	return cfg, nil
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}
