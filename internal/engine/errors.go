package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRoute matches every *NoRouteFoundError.
	ErrNoRoute = errors.New("no conversion route")
	// ErrOutputMissing is returned when a plugin reported success without
	// leaving a non-empty output file behind.
	ErrOutputMissing = errors.New("output file was not created")
)

// NoRouteFoundError names the pair no plugin could convert.
type NoRouteFoundError struct {
	Src string
	Dst string
}

func (e *NoRouteFoundError) Error() string {
	return fmt.Sprintf("no conversion route found for %s -> %s", e.Src, e.Dst)
}

func (e *NoRouteFoundError) Is(target error) bool { return target == ErrNoRoute }
