package converter

import (
	"fmt"
	"strings"

	"github.com/itsthejuice/File-Converter/internal/job"
)

// ParamKind is the type of a plugin parameter.
type ParamKind string

const (
	ParamInt    ParamKind = "int"
	ParamString ParamKind = "string"
	ParamChoice ParamKind = "choice"
)

// ParamSpec describes one parameter a capability accepts.
type ParamSpec struct {
	Kind        ParamKind `toml:"kind" validate:"required,oneof=int string choice"`
	Min         *int      `toml:"min,omitempty"`
	Max         *int      `toml:"max,omitempty"`
	Choices     []string  `toml:"choices,omitempty" validate:"required_if=Kind choice"`
	Default     any       `toml:"default,omitempty"`
	Optional    bool      `toml:"optional,omitempty"`
	Description string    `toml:"description,omitempty"`
}

// DefaultValue returns the declared default, if any.
func (p ParamSpec) DefaultValue() (job.Value, bool) {
	if p.Default == nil {
		return job.Value{}, false
	}
	v, err := job.ValueOf(p.Default)
	if err != nil {
		return job.Value{}, false
	}
	return v, true
}

// Check validates v against the descriptor.
func (p ParamSpec) Check(v job.Value) error {
	switch p.Kind {
	case ParamInt:
		n, ok := v.Int()
		if !ok {
			return fmt.Errorf("expected an integer, got %q", v.String())
		}
		if p.Min != nil && n < *p.Min {
			return fmt.Errorf("%d is below the minimum %d", n, *p.Min)
		}
		if p.Max != nil && n > *p.Max {
			return fmt.Errorf("%d is above the maximum %d", n, *p.Max)
		}
	case ParamChoice:
		for _, c := range p.Choices {
			if c == v.String() {
				return nil
			}
		}
		return fmt.Errorf("%q is not one of %s", v.String(), strings.Join(p.Choices, ", "))
	}
	return nil
}

// Capability declares a set of conversions: any input matching Inputs can
// become any of Outputs.
type Capability struct {
	Inputs  []string             `toml:"inputs" validate:"required,min=1,dive,required"`
	Outputs []string             `toml:"outputs" validate:"required,min=1,dive,required"`
	Params  map[string]ParamSpec `toml:"params,omitempty" validate:"dive"`
}

// Accepts reports whether one of the input patterns matches srcMime.
func (c Capability) Accepts(srcMime string) bool {
	for _, pattern := range c.Inputs {
		if MatchMIME(pattern, srcMime) {
			return true
		}
	}
	return false
}

// Produces reports whether dstMime is one of the declared outputs.
func (c Capability) Produces(dstMime string) bool {
	for _, out := range c.Outputs {
		if out == dstMime {
			return true
		}
	}
	return false
}

// CheckOptions validates the options that name declared parameters. Unknown
// options are ignored.
func (c Capability) CheckOptions(opts job.Options) error {
	for _, name := range opts.Keys() {
		spec, ok := c.Params[name]
		if !ok {
			continue
		}
		if err := spec.Check(opts[name]); err != nil {
			return fmt.Errorf("option %s: %w", name, err)
		}
	}
	return nil
}

// MatchMIME reports whether pattern matches mime. Patterns are either an
// exact type or "type/*".
func MatchMIME(pattern, mime string) bool {
	if pattern == mime {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(mime, prefix+"/")
	}
	return false
}
