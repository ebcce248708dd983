package internal

import (
	"github.com/pagemarkhq/pagemark/internal/config"
)

// LoadConfig loads configuration from the given path, falling back to the
// default location when the path is empty.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromFile(path)
}
