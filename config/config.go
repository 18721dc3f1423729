// Package config loads settings from .env, an optional config.yaml and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

type ServerConfig struct {
	Port               int           `mapstructure:"port"`
	ClientURL          string        `mapstructure:"client_url"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	MaxMultipartMemory int64         `mapstructure:"max_multipart_memory"`
}

// StoreConfig selects the record store: "mongo" or "memory".
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
}

// StorageConfig selects the cover image store: "disk" or "s3".
type StorageConfig struct {
	Driver    string        `mapstructure:"driver"`
	UploadDir string        `mapstructure:"upload_dir"`
	Bucket    string        `mapstructure:"bucket"`
	Region    string        `mapstructure:"region"`
	Endpoint  string        `mapstructure:"endpoint"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Prefix    string        `mapstructure:"prefix"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AdminConfig seeds an admin account at startup when all fields are set.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

func (a AdminConfig) Enabled() bool {
	return a.Username != "" && a.Email != "" && a.Password != ""
}

var envBindings = map[string][]string{
	"server.port":                 {"SERVER_PORT", "PORT"},
	"server.client_url":           {"CLIENT_URL"},
	"server.read_timeout":         {"SERVER_READ_TIMEOUT"},
	"server.write_timeout":        {"SERVER_WRITE_TIMEOUT"},
	"server.shutdown_timeout":     {"SERVER_SHUTDOWN_TIMEOUT"},
	"server.max_multipart_memory": {"SERVER_MAX_MULTIPART_MEMORY"},
	"store.driver":                {"STORE_DRIVER"},
	"mongo.uri":                   {"MONGO_URI"},
	"mongo.database":              {"MONGO_DATABASE"},
	"mongo.connect_timeout":       {"MONGO_CONNECT_TIMEOUT"},
	"jwt.secret":                  {"JWT_SECRET"},
	"jwt.expiry":                  {"JWT_EXPIRY"},
	"storage.driver":              {"STORAGE_DRIVER"},
	"storage.upload_dir":          {"STORAGE_UPLOAD_DIR"},
	"storage.bucket":              {"STORAGE_BUCKET", "BUCKET_NAME"},
	"storage.region":              {"STORAGE_REGION", "AWS_REGION"},
	"storage.endpoint":            {"STORAGE_ENDPOINT"},
	"storage.access_key":          {"STORAGE_ACCESS_KEY"},
	"storage.secret_key":          {"STORAGE_SECRET_KEY"},
	"storage.prefix":              {"STORAGE_PREFIX"},
	"storage.url_expiry":          {"STORAGE_URL_EXPIRY"},
	"rate_limit.rps":              {"RATE_LIMIT_RPS"},
	"rate_limit.burst":            {"RATE_LIMIT_BURST"},
	"log.level":                   {"LOG_LEVEL"},
	"log.format":                  {"LOG_FORMAT"},
	"admin.username":              {"ADMIN_USERNAME"},
	"admin.email":                 {"ADMIN_EMAIL"},
	"admin.password":              {"ADMIN_PASSWORD"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.client_url", "http://localhost:3000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_multipart_memory", 8<<20)
	v.SetDefault("store.driver", "mongo")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "library")
	v.SetDefault("mongo.connect_timeout", 10*time.Second)
	v.SetDefault("jwt.expiry", 30*24*time.Hour)
	v.SetDefault("storage.driver", "disk")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.url_expiry", 10*time.Minute)
	v.SetDefault("rate_limit.rps", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configFile when given, otherwise config.yaml from the working
// directory if present. Environment variables override both.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.Expiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY must be positive"))
	}
	switch c.Store.Driver {
	case "memory":
	case "mongo":
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	switch c.Storage.Driver {
	case "disk":
		if c.Storage.UploadDir == "" {
			errs = append(errs, errors.New("STORAGE_UPLOAD_DIR is required for disk storage"))
		}
	case "s3":
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("STORAGE_BUCKET is required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	return errors.Join(errs...)
}
