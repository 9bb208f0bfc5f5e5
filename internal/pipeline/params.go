package pipeline

import (
	"errors"
	"fmt"

	"github.com/pvtag/pvtag/internal/assign"
	"github.com/pvtag/pvtag/internal/extract"
	"github.com/pvtag/pvtag/internal/manager"
)

// Params carries every tunable of a run. Nothing is read from global state.
type Params struct {
	Extract  extract.Options
	Merge    bool
	MergeOpt extract.MergeOptions
	Assign   assign.Options

	// Station restricts automatic assignment to labels whose parsed
	// "station" field matches. Empty means no restriction.
	Station string
	// Advanced offers every label to the automatic engine regardless of
	// station.
	Advanced bool

	Manager manager.Options
}

// DefaultParams returns the parameter defaults.
func DefaultParams() Params {
	return Params{
		Extract:  extract.DefaultOptions(),
		Merge:    true,
		MergeOpt: extract.DefaultMergeOptions(),
		Assign:   assign.DefaultOptions(),
	}
}

// Validate checks every stage's parameters.
func (p Params) Validate() error {
	var errs []error
	if err := p.Extract.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("extract: %w", err))
	}
	if p.Merge {
		if err := p.MergeOpt.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("merge: %w", err))
		}
	}
	if err := p.Assign.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("assign: %w", err))
	}
	return errors.Join(errs...)
}

// stationScoped reports whether labels are filtered by station.
func (p Params) stationScoped() bool {
	return !p.Advanced && p.Station != ""
}
