package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"knowledge-assistant/internal/models"
)

type qaSeed struct {
	QAPairs []models.QAPair `yaml:"qa_pairs"`
}

// LoadQASeed reads curated Q&A pairs from a yaml file, skipping entries without a question or answer
func LoadQASeed(path string) ([]models.QAPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read qa seed: %w", err)
	}
	var seed qaSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse qa seed: %w", err)
	}
	pairs := make([]models.QAPair, 0, len(seed.QAPairs))
	for _, p := range seed.QAPairs {
		p.Question = strings.TrimSpace(p.Question)
		p.Answer = strings.TrimSpace(p.Answer)
		if p.Question == "" || p.Answer == "" {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}
