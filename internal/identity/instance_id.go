// Package identity derives content identifiers for connector instances and
// detects two live instances resolving to the same identifier.
package identity

import (
	apperrors "github.com/MojoAuth/connector-identity/internal/errors"
	"github.com/MojoAuth/connector-identity/pkg/canonical"
	"github.com/MojoAuth/connector-identity/pkg/xxh32"
)

// PluginsKey is forced to an empty sequence before hashing so that plugin
// lists never influence the id.
const PluginsKey = "plugins"

// InstanceConfig is the configuration of one connector instance.
type InstanceConfig map[string]any

// InstanceID is the lowercase hex xxHash32 of a normalized configuration.
type InstanceID string

func (id InstanceID) String() string {
	return string(id)
}

// Normalize returns a shallow copy of config with plugins emptied. The input
// is not modified.
func Normalize(config InstanceConfig) map[string]any {
	out := make(map[string]any, len(config)+1)
	for k, v := range config {
		out[k] = v
	}
	out[PluginsKey] = []any{}
	return out
}

// Canonicalize returns the canonical text of the normalized config.
func Canonicalize(config InstanceConfig) (string, error) {
	text, err := canonical.Marshal(Normalize(config))
	if err != nil {
		if appErr := apperrors.Classify(err); appErr != nil {
			return "", appErr
		}
		return "", apperrors.NewStructuralError(err)
	}
	return text, nil
}

// IDFromCanonical hashes canonical text into an InstanceID.
func IDFromCanonical(text string) InstanceID {
	return InstanceID(xxh32.Hex(xxh32.ChecksumString(text)))
}

// ComputeInstanceID derives the id of config. Configurations that differ only
// in key order or in their plugins entry share an id.
func ComputeInstanceID(config InstanceConfig) (InstanceID, error) {
	text, err := Canonicalize(config)
	if err != nil {
		return "", err
	}
	return IDFromCanonical(text), nil
}
