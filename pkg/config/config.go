package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/bookhub.yaml"
)

// Config holds every runtime setting. Values come from struct defaults, then
// the YAML file at $CONFIG_FILE, then environment variables named after the
// upper-cased key (e.g. DATABASE_FILE_PATH).
type Config struct {
	DatabaseFilePath          string        `koanf:"database_file_path" required:"true"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseBusyRetryCount    int           `koanf:"database_busy_retry_count" default:"5"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`

	ServerHost         string   `koanf:"server_host" default:"0.0.0.0"`
	ServerPort         int      `koanf:"server_port" default:"3689"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	JWTSecret string `koanf:"jwt_secret" required:"true"`

	BlobStoreDir                string        `koanf:"blob_store_dir" default:"./tmp/blobs"`
	BlobBaseURL                 string        `koanf:"blob_base_url" default:"/blobs"`
	MaxImageSizeBytes           int64         `koanf:"max_image_size_bytes" default:"5242880"`
	MaxEbookSizeBytes           int64         `koanf:"max_ebook_size_bytes" default:"52428800"`
	MaxDocumentSizeBytes        int64         `koanf:"max_document_size_bytes" default:"10485760"`
	BlobBreakerFailureThreshold int           `koanf:"blob_breaker_failure_threshold" default:"5"`
	BlobBreakerResetTimeout     time.Duration `koanf:"blob_breaker_reset_timeout" default:"30s"`

	UploadRatePerMinute int `koanf:"upload_rate_per_minute" default:"10"`
	UploadRateBurst     int `koanf:"upload_rate_burst" default:"5"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	path := os.Getenv(configFileENV)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	keys := knownKeys()
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := keys[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a configuration backed by an in-memory database.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.JWTSecret = "test-secret"
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0
	return cfg
}

func knownKeys() map[string]struct{} {
	keys := map[string]struct{}{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		keys[fieldKey(t.Field(i))] = struct{}{}
	}
	return keys
}

func fieldKey(f reflect.StructField) string {
	if key := f.Tag.Get("koanf"); key != "" {
		return key
	}
	return toSnakeCase(f.Name)
}

func checkRequired(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get("required") != "true" {
			continue
		}
		if v.Field(i).IsZero() {
			key := fieldKey(f)
			return errors.New(fmt.Sprintf("missing required config: set %s or %s in the config file", strings.ToUpper(key), key))
		}
	}
	return nil
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
