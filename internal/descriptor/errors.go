package descriptor

import (
	"errors"
	"fmt"
)

var (
	// ErrResource reports that a descriptor resource could not be opened or read.
	ErrResource = errors.New("descriptor resource error")

	// ErrSchema reports a document that does not match the descriptor schema,
	// including unrecognised enumeration values.
	ErrSchema = errors.New("descriptor schema error")

	// ErrURLResolution reports a jar-file reference that cannot be resolved
	// against the unit's root location.
	ErrURLResolution = errors.New("url resolution error")
)

func schemaErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchema, fmt.Sprintf(format, args...))
}
