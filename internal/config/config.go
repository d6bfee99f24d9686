package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultPath is used when no config path is given on the command line.
const DefaultPath = "./config.toml"

// EnvPrefix prefixes environment overrides, e.g. FILEBOARD_PORT.
const EnvPrefix = "FILEBOARD_"

var (
	ErrReadConfig    = errors.New("failed to read config")
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the whole config file. It is built once at startup and treated
// as read-only afterwards.
type Config struct {
	Server Server `toml:"server"`
}

// Server is the [server] table.
type Server struct {
	// Port to listen on.
	Port uint16 `toml:"port" env:"PORT" validate:"gt=0"`
	// WWWRoot is the directory served and mutated. Made absolute by Load.
	WWWRoot string `toml:"wwwroot" env:"WWWROOT" validate:"required"`
	// AllowPublic binds all interfaces instead of loopback only.
	AllowPublic bool `toml:"allow_public" env:"ALLOW_PUBLIC"`
	// Host is the public base URL used in generated links.
	Host string `toml:"host" env:"HOST" validate:"required,url"`
	// MaxFileSize caps the upload request body, in bytes.
	MaxFileSize int64 `toml:"max_file_size" env:"MAX_FILE_SIZE" validate:"gt=0"`
	// TrashCan receives soft-deleted entries. Made absolute by Load.
	TrashCan string `toml:"trash_can" env:"TRASH_CAN" validate:"required"`

	// WebDAV mounts a WebDAV view of WWWRoot under /dav/.
	WebDAV    bool   `toml:"webdav" env:"WEBDAV"`
	LogLevel  string `toml:"log_level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	LogFormat string `toml:"log_format" env:"LOG_FORMAT" validate:"omitempty,oneof=text json"`
}

// Default returns the values used for keys missing from the file.
func Default() Config {
	return Config{Server: Server{
		Port:        3000,
		WWWRoot:     ".",
		Host:        "http://localhost:3000",
		MaxFileSize: 20 * 1024 * 1024,
		LogLevel:    "info",
		LogFormat:   "text",
	}}
}

// Load reads the TOML file at path, applies FILEBOARD_* environment
// overrides (a .env file in the working directory is honored) and validates
// the result. Unknown keys are rejected.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrReadConfig, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}

	// The .env file is optional.
	_ = godotenv.Load()
	if err := env.ParseWithOptions(&cfg.Server, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c *Config) normalize() error {
	if err := validate.Struct(c.Server); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	root, err := filepath.Abs(c.Server.WWWRoot)
	if err != nil {
		return fmt.Errorf("%w: wwwroot: %w", ErrInvalidConfig, err)
	}
	st, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: wwwroot: %w", ErrInvalidConfig, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: wwwroot %s is not a directory", ErrInvalidConfig, root)
	}
	c.Server.WWWRoot = root

	trash, err := filepath.Abs(c.Server.TrashCan)
	if err != nil {
		return fmt.Errorf("%w: trash_can: %w", ErrInvalidConfig, err)
	}
	if trash == root {
		return fmt.Errorf("%w: trash_can must differ from wwwroot", ErrInvalidConfig)
	}
	if err := os.MkdirAll(trash, 0o755); err != nil {
		return fmt.Errorf("%w: trash_can: %w", ErrInvalidConfig, err)
	}
	c.Server.TrashCan = trash

	c.Server.Host = strings.TrimSuffix(c.Server.Host, "/")
	return nil
}

// Addr is the listen address: loopback unless AllowPublic is set.
func (s Server) Addr() string {
	host := "127.0.0.1"
	if s.AllowPublic {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}
