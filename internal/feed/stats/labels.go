package stats

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSportLabels maps provider sport types to display labels.
var DefaultSportLabels = map[string]string{
	"Run":            "Corrida",
	"Ride":           "Ciclismo",
	"Swim":           "Natação",
	"Walk":           "Caminhada",
	"Hike":           "Trilha",
	"TrailRun":       "Corrida em Trilha",
	"WeightTraining": "Musculação",
	"Yoga":           "Yoga",
	"Workout":        "Treino Geral",
}

// LoadSportLabels returns the default labels overlaid with the YAML mapping
// at path. An empty path returns the defaults unchanged.
func LoadSportLabels(path string) (map[string]string, error) {
	labels := make(map[string]string, len(DefaultSportLabels))
	for k, v := range DefaultSportLabels {
		labels[k] = v
	}
	if path == "" {
		return labels, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sport labels file: %w", err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse sport labels file %s: %w", path, err)
	}
	for k, v := range overrides {
		labels[k] = v
	}
	return labels, nil
}
