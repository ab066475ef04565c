package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads every configuration file under paths into one model with
	// defaults applied. It does not validate the model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
