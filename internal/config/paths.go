package config

import (
	"os"
	"path/filepath"

	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/errors"
)

// GlobalConfigDir returns the global slipway directory (~/.slipway).
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "determine home directory")
	}
	return filepath.Join(home, constants.SlipwayHome), nil
}

// ProjectConfigPath returns the project config path (slipway.yaml) in the
// current working directory.
func ProjectConfigPath() string {
	return constants.ProjectConfigFileName
}

// LogsDir returns the directory the rotating CLI log is written to.
func LogsDir() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.LogsDir), nil
}
