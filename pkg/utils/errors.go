package utils

import (
	"fmt"
	"strings"
)

// ErrMessage returns the error text, or fallback when err is nil
func ErrMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}

// CombineErrors folds a list of errors into one, skipping nils
func CombineErrors(errs ...error) error {
	var parts []string
	for _, err := range errs {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s", parts[0])
	default:
		return fmt.Errorf("multiple errors: %s", strings.Join(parts, "; "))
	}
}

// CloseAll runs each shutdown step in order and reports every failure.
// Used on server shutdown so one failing close does not hide the rest.
func CloseAll(steps ...func() error) error {
	var errs []error
	for _, step := range steps {
		if step == nil {
			continue
		}
		errs = append(errs, step())
	}
	return CombineErrors(errs...)
}
