package converter

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// ManifestFile is the name of the manifest inside a plugin directory.
const ManifestFile = "plugin.toml"

// ErrInvalidManifest wraps every manifest parse or validation failure.
var ErrInvalidManifest = errors.New("invalid plugin manifest")

var requiredKeys = []string{"name", "version", "entry", "capabilities", "tool_requires"}

// Manifest is the declarative description of a plugin.
type Manifest struct {
	Name         string       `toml:"name" validate:"required"`
	Version      string       `toml:"version" validate:"required,semver"`
	Entry        string       `toml:"entry" validate:"required"`
	Description  string       `toml:"description,omitempty"`
	Capabilities []Capability `toml:"capabilities" validate:"required,min=1,dive"`
	ToolRequires []string     `toml:"tool_requires" validate:"dive,required"`
}

var validate = validator.New()

// ParseManifest decodes and validates a TOML manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Manifest{}, fmt.Errorf("%w: missing keys %s", ErrInvalidManifest, strings.Join(missing, ", "))
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	return ParseManifest(data)
}

// Validate checks the manifest's field constraints.
func (m Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return nil
}

// Inputs returns every input pattern across capabilities, in declaration order.
func (m Manifest) Inputs() []string {
	var out []string
	for _, c := range m.Capabilities {
		out = append(out, c.Inputs...)
	}
	return out
}

// Outputs returns every output type across capabilities, in declaration order.
func (m Manifest) Outputs() []string {
	var out []string
	for _, c := range m.Capabilities {
		out = append(out, c.Outputs...)
	}
	return out
}
