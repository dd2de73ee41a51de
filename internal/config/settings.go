package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/Veraticus/purse/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Viper keys.
const (
	KeyBackend     = "storage.backend"
	KeyDatabase    = "database.path"
	KeyJSONPath    = "storage.json_path"
	KeyExportDir   = "export.dir"
	KeyBcryptCost  = "security.bcrypt_cost"
	KeyLogLevel    = "logging.level"
	KeyLogFormat   = "logging.format"
	KeyTheme       = "tui.theme"
	KeyPassword    = "password"
	defaultExports = "exports"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	Backend    string
	Database   string
	JSONPath   string
	ExportDir  string
	LogLevel   string
	LogFormat  string
	Theme      string
	BcryptCost int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, BackendSQLite)
	v.SetDefault(KeyDatabase, filepath.Join(DataDir(), "purse.db"))
	v.SetDefault(KeyJSONPath, filepath.Join(DataDir(), "users.json"))
	v.SetDefault(KeyExportDir, defaultExports)
	v.SetDefault(KeyBcryptCost, bcrypt.DefaultCost)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyTheme, "default")
}

// Load reads settings from v and validates them.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		Backend:    strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		Database:   ExpandPath(v.GetString(KeyDatabase)),
		JSONPath:   ExpandPath(v.GetString(KeyJSONPath)),
		ExportDir:  ExpandPath(v.GetString(KeyExportDir)),
		BcryptCost: v.GetInt(KeyBcryptCost),
		LogLevel:   v.GetString(KeyLogLevel),
		LogFormat:  v.GetString(KeyLogFormat),
		Theme:      v.GetString(KeyTheme),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var problems []string

	switch s.Backend {
	case BackendSQLite:
		if s.Database == "" {
			problems = append(problems, KeyDatabase+" is required for the sqlite backend")
		}
	case BackendJSON:
		if s.JSONPath == "" {
			problems = append(problems, KeyJSONPath+" is required for the json backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("%s must be %q or %q, got %q", KeyBackend, BackendSQLite, BackendJSON, s.Backend))
	}

	if s.ExportDir == "" {
		problems = append(problems, KeyExportDir+" must not be empty")
	}
	if s.BcryptCost != 0 && (s.BcryptCost < bcrypt.MinCost || s.BcryptCost > bcrypt.MaxCost) {
		problems = append(problems, fmt.Sprintf("%s must be between %d and %d", KeyBcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	if _, err := common.ParseLevel(s.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("%s: unknown level %q", KeyLogLevel, s.LogLevel))
	}
	switch s.LogFormat {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("%s: unknown format %q", KeyLogFormat, s.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// StorePath returns the file backing the configured store.
func (s *Settings) StorePath() string {
	if s.Backend == BackendJSON {
		return s.JSONPath
	}
	return s.Database
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(ExpandPath(path)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}
