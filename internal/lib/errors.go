package lib

import "fmt"

// WrapError keeps both the base error and the cause matchable with errors.Is.
func WrapError(base error, cause error) error {
	return fmt.Errorf("%w: %w", base, cause)
}
