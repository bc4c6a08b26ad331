package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	DocStore DocStoreConfig
	Session  SessionConfig
	Storage  StorageConfig
	Log      LogConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Port        string   `env:"SERVER_PORT" envDefault:"8080"`
	Mode        string   `env:"GIN_MODE" envDefault:"release"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

type DatabaseConfig struct {
	Host        string `env:"DB_HOST" envDefault:"localhost"`
	Port        int    `env:"DB_PORT" envDefault:"5432"`
	User        string `env:"DB_USER" envDefault:"postgres"`
	Password    string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name        string `env:"DB_NAME" envDefault:"agencysite"`
	SSLMode     string `env:"DB_SSLMODE" envDefault:"disable"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database    string `env:"MONGO_DATABASE" envDefault:"agencysite"`
	MaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE" envDefault:"50"`
}

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type DocStoreConfig struct {
	Driver string `env:"DOCSTORE_DRIVER" envDefault:"postgres"`
}

type SessionConfig struct {
	Secret string `env:"SESSION_SECRET"`
	TTL    int    `env:"SESSION_TTL_HOURS" envDefault:"24"`
}

func (c *SessionConfig) ExpirationDuration() time.Duration {
	return time.Duration(c.TTL) * time.Hour
}

const (
	StorageGCS    = "gcs"
	StorageMemory = "memory"
	StorageNone   = "none"
)

type StorageConfig struct {
	Driver          string `env:"STORAGE_DRIVER" envDefault:"gcs"`
	Endpoint        string `env:"STORAGE_ENDPOINT" envDefault:"https://storage.googleapis.com"`
	ProjectID       string `env:"STORAGE_PROJECT_ID"`
	BucketID        string `env:"STORAGE_BUCKET_ID"`
	CredentialsFile string `env:"STORAGE_CREDENTIALS_FILE"`
	// ViewTemplate and PreviewTemplate accept {endpoint}, {project}, {bucket}
	// and {file}; PreviewTemplate also takes {width} and {height}.
	ViewTemplate    string `env:"STORAGE_VIEW_URL" envDefault:"{endpoint}/{bucket}/{file}"`
	PreviewTemplate string `env:"STORAGE_PREVIEW_URL" envDefault:"{endpoint}/{bucket}/{file}?w={width}&h={height}"`
	TimeoutSeconds  int    `env:"STORAGE_TIMEOUT_SECONDS" envDefault:"30"`
}

func (c *StorageConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type LogConfig struct {
	Mode  string `env:"LOG_MODE" envDefault:"production"`
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	Name     string `env:"ADMIN_NAME" envDefault:"Administrator"`
}

// Load reads an optional .env file (ENV_FILE overrides the path) and then
// parses the process environment.
func Load() (*Config, error) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	switch c.DocStore.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DOCSTORE_DRIVER %q", c.DocStore.Driver))
	}
	switch c.Storage.Driver {
	case StorageGCS:
		if c.Storage.BucketID == "" {
			errs = append(errs, errors.New("STORAGE_BUCKET_ID is required for the gcs storage driver"))
		}
	case StorageMemory, StorageNone:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}
