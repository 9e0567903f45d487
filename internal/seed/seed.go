// Package seed loads meeting resource pool definitions from a YAML file so
// operators can provision the pool without hand-writing SQL.
package seed

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"github.com/example/cohort-scheduler/internal/resources"
)

// resourceEntry is the on-disk shape of one pool entry.
type resourceEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Platform    string `yaml:"platform"`
	Credentials string `yaml:"credentials"`
	Maintenance bool   `yaml:"maintenance"`
}

type poolFile struct {
	Resources []resourceEntry `yaml:"resources"`
}

// LoadPool parses a pool seed file. Unknown fields are rejected so typos in
// operator-maintained files fail loudly instead of silently dropping data.
func LoadPool(path string) ([]resources.MeetingResource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return ParsePool(data)
}

// ParsePool decodes seed file contents.
func ParsePool(data []byte) ([]resources.MeetingResource, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var file poolFile
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("seed: decode pool file: %w", err)
	}

	pool := make([]resources.MeetingResource, 0, len(file.Resources))
	seen := make(map[string]struct{}, len(file.Resources))
	for i, entry := range file.Resources {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("seed: resource %d has no id", i)
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("seed: duplicate resource id %q", id)
		}
		seen[id] = struct{}{}

		status := resources.StatusAvailable
		if entry.Maintenance {
			status = resources.StatusMaintenance
		}
		pool = append(pool, resources.MeetingResource{
			ID:          id,
			Name:        strings.TrimSpace(entry.Name),
			Platform:    strings.TrimSpace(entry.Platform),
			Credentials: entry.Credentials,
			Status:      status,
		})
	}
	return pool, nil
}
