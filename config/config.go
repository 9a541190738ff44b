package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	ModFolder       string `mapstructure:"MOD_FOLDER"`
	ModioAPIKey     string `mapstructure:"MODIO_API_KEY"`
	ModioEmail      string `mapstructure:"MODIO_EMAIL"`
	ConfigDir       string `mapstructure:"CONFIG_DIR"`
	CacheDir        string `mapstructure:"CACHE_DIR"`
	UserAgent       string `mapstructure:"USERAGENT"`
	KeepOldArchives bool   `mapstructure:"KEEP_OLD_ARCHIVES"`

	// Derived, not read from the environment.
	TokenPath    string `mapstructure:"-"`
	APIKeyPath   string `mapstructure:"-"`
	LedgerPath   string `mapstructure:"-"`
	DatabasePath string `mapstructure:"-"`
	StagingRoot  string `mapstructure:"-"`
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)   // Path to look for the config file in
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")  // REQUIRED if the config file does not have the extension in the name

	vipErr := viper.ReadInConfig()
	if _, ok := vipErr.(viper.ConfigFileNotFoundError); ok {
		slog.Info("Config file (.env) not found, relying on environment variables.")
	} else if vipErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vipErr)
	}

	viper.AutomaticEnv()

	for _, key := range []string{
		"MOD_FOLDER", "MODIO_API_KEY", "MODIO_EMAIL",
		"CONFIG_DIR", "CACHE_DIR", "USERAGENT", "KEEP_OLD_ARCHIVES",
	} {
		if bindErr := viper.BindEnv(key); bindErr != nil {
			slog.Warn("Unable to bind env var", "key", key, "error", bindErr)
		}
	}

	if vipErr = viper.Unmarshal(&config); vipErr != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", vipErr)
	}

	processConfigDefaults(&config)
	loadCredentialFiles(&config)

	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}

// processConfigDefaults fills in defaults and the derived state-file paths.
func processConfigDefaults(config *Config) {
	if config.ConfigDir == "" {
		config.ConfigDir = filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "bonelab-mod-manager")
	}
	if config.CacheDir == "" {
		config.CacheDir = filepath.Join(xdgDir("XDG_CACHE_HOME", ".cache"), "bonelab-mod-manager")
	}
	if config.UserAgent == "" {
		config.UserAgent = "bonelab-mod-manager/dev (unknown-user)"
		slog.Warn("USERAGENT not set in config or environment, using default.")
	}

	// Viper doesn't handle bool defaults from env well without explicit SetDefault.
	keepStr := viper.GetString("KEEP_OLD_ARCHIVES")
	if keepStr == "" {
		config.KeepOldArchives = false
	} else if keep, parseErr := strconv.ParseBool(keepStr); parseErr != nil {
		slog.Warn("Invalid value for KEEP_OLD_ARCHIVES, defaulting to false", "value", keepStr, "error", parseErr)
		config.KeepOldArchives = false
	} else {
		config.KeepOldArchives = keep
	}

	config.TokenPath = filepath.Join(config.ConfigDir, "modio_access_token")
	config.APIKeyPath = filepath.Join(config.ConfigDir, "modio_api_key")
	config.LedgerPath = filepath.Join(config.ConfigDir, "modio_subscribed_mods")
	config.DatabasePath = filepath.Join(config.ConfigDir, "history.db")
}

// loadCredentialFiles falls back to the persisted credential files when the
// environment and flags provided nothing.
func loadCredentialFiles(config *Config) {
	if config.ModFolder == "" {
		if data, err := os.ReadFile(filepath.Join(config.ConfigDir, "modio_folder")); err == nil {
			config.ModFolder = strings.TrimSpace(string(data))
		}
	}
	if config.ModioAPIKey == "" {
		if data, err := os.ReadFile(config.APIKeyPath); err == nil {
			config.ModioAPIKey = strings.TrimSpace(string(data))
		}
	}
}

// validateAndEnsureDirectories checks required settings and creates the
// working directories.
func validateAndEnsureDirectories(config *Config) error {
	if config.ModFolder == "" {
		slog.Error("MOD_FOLDER is not set")
		return fmt.Errorf("MOD_FOLDER is required")
	}
	if _, err := os.Stat(config.ModFolder); err != nil {
		slog.Error("Mod folder is not readable", "path", config.ModFolder, "error", err)
		return fmt.Errorf("mod folder %q is not readable: %w", config.ModFolder, err)
	}

	for _, dir := range []string{config.ConfigDir, config.CacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create directory", "path", dir, "error", err)
			return err
		}
	}

	// Staging happens one level below the mod root so publish is a rename
	// on the same filesystem.
	config.StagingRoot = config.ModFolder

	return nil
}

func xdgDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}
