// Package pathutil provides utilities for safe path handling and validation.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// cleanAbs expands a leading ~, rejects traversal patterns and returns the
// absolute form of path.
func cleanAbs(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding home directory: %w", err)
	}
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("path contains directory traversal pattern: %s", path)
	}
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}
	return absPath, nil
}

// ValidateConfigPath validates a configuration file path.
// Config files are expected to be YAML files.
func ValidateConfigPath(path string) (string, error) {
	absPath, err := cleanAbs(path)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	if ext != ".yaml" && ext != ".yml" {
		return "", fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	return absPath, nil
}

// ValidateInputPath validates a path to an existing regular file, such as a
// scanner report or a findings document.
func ValidateInputPath(path string) (string, error) {
	absPath, err := cleanAbs(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("checking input file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("input is not a regular file: %s", absPath)
	}

	return absPath, nil
}

// ValidateOutputPath validates an output file path.
// It ensures the parent directory exists and the path is safe.
func ValidateOutputPath(path string) (string, error) {
	absPath, err := cleanAbs(path)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(absPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("parent directory does not exist: %s", dir)
	}

	return absPath, nil
}
