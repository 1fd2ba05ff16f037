package worker

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	pserrs "github.com/jdholdren/podscribe/internal/errors"
)

// Unwraps the application error from temporal into a structured error if possible.
//
// Returns true if the error carried one in its details.
// Returns false otherwise.
func asAPIErr(err error, apiErr **pserrs.Error) bool {
	if err == nil {
		return false
	}

	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Details(apiErr) == nil
}
