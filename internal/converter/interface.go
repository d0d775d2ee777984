package converter

import (
	"context"

	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/runner"
)

// Lossiness classifies a planned conversion.
type Lossiness string

const (
	Lossless Lossiness = "lossless"
	Lossy    Lossiness = "lossy"
)

// PlanInfo is what a module reports about a conversion before running it.
type PlanInfo struct {
	Cost      float64   `json:"cost"`
	Lossiness Lossiness `json:"lossiness"`
}

// Module is the executable side of a plugin.
type Module interface {
	// Available reports whether the tools the module shells out to are present.
	// It is called on every routing decision and must not cache.
	Available() bool

	// Capabilities lists the conversions the module can perform.
	Capabilities() []Capability

	// Plan describes the conversion from srcMime to dstMime without running it.
	Plan(srcMime, dstMime string) (PlanInfo, error)

	// Run converts srcPath into dstPath. Diagnostic lines from the underlying
	// tool are passed to onLine as they arrive.
	Run(ctx context.Context, srcPath, dstPath, dstMime string, opts job.Options, onLine runner.LineFunc) error
}

// Info summarises a registered plugin for listings.
type Info struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Entry        string   `json:"entry"`
	Dir          string   `json:"dir,omitempty"`
	Inputs       []string `json:"inputs"`
	Outputs      []string `json:"outputs"`
	ToolRequires []string `json:"tool_requires"`
	Missing      []string `json:"missing,omitempty"`
	Enabled      bool     `json:"enabled"`
	Available    bool     `json:"available"`
}
