package kit

import "fmt"

// Wrap prefixes err with the operation name, keeping it matchable with
// errors.Is.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
