package config

import (
	"errors"
	"reflect"
	"strings"

	"table-sync/core/coda"
	"table-sync/core/database"
	"table-sync/core/logger"
	"table-sync/core/server"
	"table-sync/core/sheets"
	"table-sync/core/storage"
	"table-sync/feature/pipeline"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the snapshot archive.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the run history database.
	Database database.Config `mapstructure:"database"`
	// Coda holds configuration for the Coda API client.
	Coda coda.Config `mapstructure:"coda"`
	// Sheets holds configuration for the Google Sheets API client.
	Sheets sheets.Config `mapstructure:"sheets"`
	// Sync holds the defaults shared by all pipelines.
	Sync pipeline.Settings `mapstructure:"sync"`
	// Pipelines lists the configured pipelines. Only the config file can set it.
	Pipelines []pipeline.Definition `mapstructure:"pipelines"`
}

// LoadConfig loads configuration from the config file in path, environment variables
// and the .env file.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigFile(path, "")
}

// LoadConfigFile is LoadConfig with an explicit config file. An empty file looks for
// config.{yaml,json,toml} in path; a missing default file is not an error.
func LoadConfigFile(path, file string) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		switch field.Type.Kind() {
		case reflect.Struct:
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		case reflect.Slice, reflect.Map:
			// Lists come from the config file only.
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
