package compose

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports a layer whose shape conflicts with the layers merged
// before it, or a layer that is malformed.
type ConfigError struct {
	// Layer is the name of the offending layer.
	Layer string

	// Path is the key path of the conflict, outermost first.
	Path []string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("config error in layer %q: %s", e.Layer, e.Message)
	}
	return fmt.Sprintf("config error in layer %q at %s: %s", e.Layer, strings.Join(e.Path, "."), e.Message)
}

// IsConfigError returns true if err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
