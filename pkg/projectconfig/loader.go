package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ErrNotFound is returned by Find when no project file exists
var ErrNotFound = errors.New("no " + FileName + " found")

// Load reads and validates a project file
func Load(configPath string) (*ProjectConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if !v.IsSet("cdstail") {
		return nil, fmt.Errorf("'cdstail' key not found in %s. Please ensure your config file is valid", configPath)
	}

	var config ProjectConfig
	if err := v.UnmarshalKey("cdstail", &config); err != nil {
		return nil, fmt.Errorf("failed to parse cdstail config: %w", err)
	}
	config.Path = configPath

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}

	return &config, nil
}

// Find looks for the project file in dir and its parents
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// LoadFromDir finds and loads the project file for dir. A missing file is not
// an error and returns an empty config.
func LoadFromDir(dir string) (*ProjectConfig, error) {
	path, err := Find(dir)
	if errors.Is(err, ErrNotFound) {
		return &ProjectConfig{}, nil
	}
	if err != nil {
		return nil, err
	}
	return Load(path)
}
