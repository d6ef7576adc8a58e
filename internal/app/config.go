package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/rosettago/internal/cost"
)

// Config holds everything an App instance needs to run one search.
type Config struct {
	CatalogPath string // .hcl operator declarations

	Input  string // type notation, e.g. path[64]/euclidean
	Output string // type notation, e.g. feature[16]/l2

	Depth   int
	Seed    int64
	Budget  string // metric=limit pairs, e.g. cost=20,memory=4
	Samples int
	Steps   int
	Workers int

	HealthcheckPort int
	LogFormat       string
	LogLevel        string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.CatalogPath == "" {
		return nil, errors.New("CatalogPath is a required configuration field and cannot be empty")
	}
	if cfg.Input == "" || cfg.Output == "" {
		return nil, errors.New("Input and Output types are required")
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 3
	}
	if cfg.Samples <= 0 {
		cfg.Samples = 16
	}
	if _, err := ParseBudget(cfg.Budget); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseBudget reads comma-separated metric=limit pairs. An empty string means
// an unconstrained run.
func ParseBudget(s string) (cost.Budget, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	b := cost.Budget{}
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid budget entry %q: expected metric=limit", part)
		}
		limit, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid budget limit in %q: %w", part, err)
		}
		b[strings.TrimSpace(kv[0])] = limit
	}
	return b, nil
}
