// Package matrix resolves the declarative target matrix into build jobs.
//
// Resolution is a pure expansion: the static declaration from the pipeline
// configuration becomes an ordered set of domain.MatrixEntry records, with
// every invariant checked up front so a malformed matrix blocks the run
// before any build starts.
package matrix

import (
	"fmt"

	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
)

// Resolve validates and expands the declared matrix entries.
//
// Invariants enforced:
//   - at least one entry, at most constants.MaxMatrixEntries
//   - os, target, and binary_name are present on every entry
//   - binary_name is constant across entries
//   - target is pairwise distinct across the matrix
//
// Any violation returns an error wrapping ErrConfiguration; resolution has no
// side effects.
func Resolve(entries []domain.MatrixEntry) ([]domain.MatrixEntry, error) {
	if len(entries) == 0 {
		return nil, errors.Wrap(errors.ErrConfiguration, "matrix is empty")
	}
	if len(entries) > constants.MaxMatrixEntries {
		return nil, errors.Wrapf(errors.ErrConfiguration,
			"matrix has %d entries, limit is %d", len(entries), constants.MaxMatrixEntries)
	}

	seen := make(map[string]int, len(entries))
	binaryName := entries[0].BinaryName

	for i, e := range entries {
		if err := requireFields(i, e); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrConfiguration, err)
		}
		if e.BinaryName != binaryName {
			return nil, errors.Wrapf(errors.ErrConfiguration,
				"entry %d: binary_name %q differs from %q; binary_name must be constant across the matrix",
				i, e.BinaryName, binaryName)
		}
		if prev, ok := seen[e.Target]; ok {
			return nil, fmt.Errorf("%w: %w: target %q declared by entries %d and %d",
				errors.ErrConfiguration, errors.ErrDuplicateTarget, e.Target, prev, i)
		}
		seen[e.Target] = i
	}

	// Return a copy so later mutation of the config slice cannot affect the run.
	resolved := make([]domain.MatrixEntry, len(entries))
	copy(resolved, entries)
	return resolved, nil
}

// requireFields checks the per-entry required fields.
func requireFields(i int, e domain.MatrixEntry) error {
	switch {
	case e.OS == "":
		return errors.Wrapf(errors.ErrMissingField, "entry %d: os", i)
	case e.Target == "":
		return errors.Wrapf(errors.ErrMissingField, "entry %d: target", i)
	case e.BinaryName == "":
		return errors.Wrapf(errors.ErrMissingField, "entry %d: binary_name", i)
	}
	return nil
}
