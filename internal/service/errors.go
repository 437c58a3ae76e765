package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Failure taxonomy for the engine. Callers classify with errors.Is.
//
//   - ErrValidation: malformed input; fix and resubmit, never retried as-is.
//   - ErrConflict: lost a uniqueness race and the retry-read did not
//     resolve it; caller retries by re-reading.
//   - ErrIncompleteEvidence: no sentiment strategy has produced a value
//     for the link yet; retry once scoring has run.
//   - ErrInsufficientSignal: the combined sentiment is still null; retry
//     once combination has run.
//   - ErrModel: an external scoring function failed; the affected field
//     stays null and sibling strategies/horizons keep going.
//   - ErrConstraint: a foreign key points at a missing root. Fatal for
//     the batch; it means an upstream stage ran out of order.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflicting concurrent write")
	ErrIncompleteEvidence = errors.New("no sentiment evidence yet")
	ErrInsufficientSignal = errors.New("combined sentiment not computed")
	ErrModel              = errors.New("scoring model failed")
	ErrConstraint         = errors.New("referenced row missing")
)

// classifyDBError maps store integrity failures onto the taxonomy and
// passes everything else through untouched.
func classifyDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
