package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quantumflow/agentflow/internal/models"
)

// LoadStrategies reads every *.yaml and *.yml file in dir in name order.
// A file may hold several strategies as separate YAML documents.
func LoadStrategies(dir string) ([]*models.Strategy, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read strategy dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var strategies []*models.Strategy
	for _, path := range files {
		loaded, err := LoadStrategyFile(path)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, loaded...)
	}
	return strategies, nil
}

// LoadStrategyFile decodes the strategies in one YAML file. Unknown fields are rejected.
func LoadStrategyFile(path string) ([]*models.Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var strategies []*models.Strategy
	for {
		var s models.Strategy
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		strategies = append(strategies, &s)
	}
	return strategies, nil
}
