package riskconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML file and returns the validated Config with its raw bytes.
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read risk config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes YAML over the defaults. Unknown fields fail immediately so a
// typo can never fall back to a default silently.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode risk config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Hash returns the SHA-256 of the canonical JSON encoding
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
