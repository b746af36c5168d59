package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	Getwd() (string, error)
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

func (rfs *RealFileSystem) Getwd() (string, error) {
	return os.Getwd()
}

// Resolver handles finding and resolving config and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles finds config and env files for a service.
// Returns explicit paths if provided, otherwise searches for them.
func (cr *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}

	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.findConfigFile(serviceName)
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.findEnvFile(serviceName)
	}

	return resolved
}

// findConfigFile searches for config.yml in standard locations.
func (cr *Resolver) findConfigFile(serviceName string) string {
	short := shortName(serviceName)

	searchPaths := []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("./cmd/%s/config.yml", short),
		fmt.Sprintf("../cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../cmd/%s/config.yml", short),
		fmt.Sprintf("../../cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../../cmd/%s/config.yml", short),
		"./config/config.yml",
		"../config/config.yml",
		"./config.yml",
	}

	for _, path := range searchPaths {
		if cr.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile searches for .env.<service> and .env in standard locations.
func (cr *Resolver) findEnvFile(serviceName string) string {
	dirs := envSearchDirs(serviceName)
	if short := shortName(serviceName); short != serviceName {
		dirs = append(dirs, envSearchDirs(short)...)
	}

	for _, name := range []string{".env." + serviceName, ".env"} {
		for _, dir := range dirs {
			candidate := filepath.Join(dir, name)
			if cr.FileSystem.Exists(candidate) {
				return candidate
			}
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional overrides.
type LoaderConfig struct {
	FileSystem  FileSystem
	ConfigFile  string // Direct config file path (optional)
	EnvFile     string // Direct env file path (optional)
	Environment string // Overlay environment; falls back to ENVIRONMENT and the file value

	Flags    *pflag.FlagSet
	FlagKeys map[string]string // flag name -> config key
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvironment selects the config.<env>.yml overlay explicitly.
func WithEnvironment(env string) LoaderOption {
	return func(lc *LoaderConfig) { lc.Environment = env }
}

// WithFlags applies command-line flags on top of files and environment.
// Only flags the user actually set override configuration; keys maps a flag
// name (e.g. "port") to its config key (e.g. "server.port").
func WithFlags(fs *pflag.FlagSet, keys map[string]string) LoaderOption {
	return func(lc *LoaderConfig) {
		lc.Flags = fs
		lc.FlagKeys = keys
	}
}

// LoadConfig loads configuration for a service into the provided cfg struct.
// It searches for config.yml and .env files in standard locations, binds
// environment variables and flags, and unmarshals the result into cfg.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	v, err := load(files, lc)
	if err != nil {
		return fmt.Errorf("failed to load config for service %s: %w", serviceName, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

func load(files ResolvedFiles, lc LoaderConfig) (*viper.Viper, error) {
	fs := lc.FileSystem
	v := viper.New()

	// .env first so ENVIRONMENT from it can select the overlay.
	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			fmt.Fprintf(os.Stderr, "[config] warning: failed to load .env file %s: %v\n", files.EnvFile, err)
		}
	}

	if files.ConfigFile != "" && fs.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", files.ConfigFile, err)
		}

		env := resolveEnvironment(v, lc)
		if overlay := overlayPath(files.ConfigFile, env); overlay != "" && fs.Exists(overlay) {
			v.SetConfigFile(overlay)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merge %s: %w", overlay, err)
			}
		}
	}

	v.AutomaticEnv()
	autoBindEnvVars(v)
	bindChangedFlags(v, lc.Flags, lc.FlagKeys)

	return v, nil
}

// resolveEnvironment picks the overlay environment: explicit option, then a
// set --environment style flag, then ENVIRONMENT, then the file value.
func resolveEnvironment(v *viper.Viper, lc LoaderConfig) string {
	if lc.Environment != "" {
		return lc.Environment
	}
	if lc.Flags != nil {
		for name, key := range lc.FlagKeys {
			if key != "environment" {
				continue
			}
			if f := lc.Flags.Lookup(name); f != nil && f.Changed {
				return f.Value.String()
			}
		}
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return v.GetString("environment")
}

// overlayPath returns config.<env>.yml for config.yml, or "" without an env.
func overlayPath(configFile, env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		return ""
	}
	ext := filepath.Ext(configFile)
	return strings.TrimSuffix(configFile, ext) + "." + env + ext
}

func bindChangedFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	if fs == nil {
		return
	}
	for name, key := range keys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		v.Set(key, f.Value.String())
	}
}

// envSearchDirs lists the directories searched for .env files, closest first.
func envSearchDirs(serviceName string) []string {
	var dirs []string
	for _, base := range []string{
		filepath.Join("cmd", serviceName),
		filepath.Join("config", serviceName),
		"config",
		"",
	} {
		for _, up := range []string{".", "..", filepath.Join("..", "..")} {
			dirs = append(dirs, filepath.Join(up, base))
		}
	}
	return dirs
}

func shortName(serviceName string) string {
	if idx := strings.LastIndex(serviceName, "-"); idx != -1 {
		return serviceName[idx+1:]
	}
	return serviceName
}

// autoBindEnvVars automatically binds environment variables to Viper
// by converting UPPER_CASE_WITH_UNDERSCORES to multiple possible nested key formats.
func autoBindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}

		key := pair[0]
		value := pair[1]

		variants := generateEnvKeyVariants(key)
		for _, variant := range variants {
			v.Set(variant, value)
		}
	}
}

// generateEnvKeyVariants returns every way of splitting an environment
// variable into nested keys, so that SERVER_RATE_LIMIT_BURST reaches
// server.rate_limit.burst as well as server.rate.limit.burst.
//
//	AUTH_JWT_SECRET -> [auth_jwt_secret, auth_jwt.secret, auth.jwt_secret, auth.jwt.secret]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}
	if len(parts) > maxSplitParts {
		return []string{lowerKey, strings.ReplaceAll(lowerKey, "_", ".")}
	}

	// Each of the len(parts)-1 separators is either "_" or ".".
	n := len(parts) - 1
	variants := make([]string, 0, 1<<n)
	for mask := 0; mask < 1<<n; mask++ {
		var b strings.Builder
		b.WriteString(parts[0])
		for i := 1; i < len(parts); i++ {
			if mask&(1<<(i-1)) != 0 {
				b.WriteByte('.')
			} else {
				b.WriteByte('_')
			}
			b.WriteString(parts[i])
		}
		variants = append(variants, b.String())
	}
	return removeDuplicates(variants)
}

const maxSplitParts = 8

// removeDuplicates removes duplicate strings from a slice.
func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
