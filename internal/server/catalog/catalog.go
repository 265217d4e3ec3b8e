// Package catalog holds the built-in sample programs used for seeding.
package catalog

import (
	_ "embed"
	"fmt"

	"github.com/dmitrijs2005/rechub/internal/server/models"
	"gopkg.in/yaml.v3"
)

//go:embed programs.yaml
var programsYAML []byte

// Load decodes the embedded catalog. Reviews without an ID get
// "seed-<index>" and every review is marked as seeded.
func Load() ([]models.Program, error) {
	return Parse(programsYAML)
}

func Parse(data []byte) ([]models.Program, error) {
	var programs []models.Program
	if err := yaml.Unmarshal(data, &programs); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	for i := range programs {
		p := &programs[i]
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		for j := range p.Reviews {
			r := &p.Reviews[j]
			if r.ID == "" {
				r.ID = fmt.Sprintf("seed-%d", j)
			}
			r.ProgramID = p.ID
			r.Seeded = true
		}
	}
	return programs, nil
}
