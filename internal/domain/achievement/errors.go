package achievement

import "errors"

// ErrInconsistentContext is returned when a context is applied to a
// population other than the one it was built from.
var ErrInconsistentContext = errors.New("achievement context does not match population")
