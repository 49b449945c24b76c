package tabular

import (
	"errors"
	"fmt"
)

// Kind classifies a backend failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindSpreadsheetNotFound
	KindPermissionDenied
	KindWorksheetMissing
	KindUnreachable
)

func (k Kind) String() string {
	switch k {
	case KindSpreadsheetNotFound:
		return "spreadsheet_not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindWorksheetMissing:
		return "worksheet_missing"
	case KindUnreachable:
		return "unreachable"
	}
	return "unknown"
}

// BackendError reports that the backend itself is unusable. It always
// aborts the current operation.
type BackendError struct {
	Kind     Kind
	Resource string // spreadsheet id, worksheet title or file path
	Err      error
}

func (e *BackendError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("backend %s (%s): %v", e.Kind, e.Resource, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is matches another *BackendError of the same kind, so sentinels like
// ErrPermissionDenied work with errors.Is.
func (e *BackendError) Is(target error) bool {
	t, ok := target.(*BackendError)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// Diagnostic returns a message telling the user what to fix.
func (e *BackendError) Diagnostic() string {
	switch e.Kind {
	case KindSpreadsheetNotFound:
		return fmt.Sprintf("The spreadsheet %q was not found. Check SPREADSHEET_ID.", e.Resource)
	case KindPermissionDenied:
		return fmt.Sprintf("Access to %q was denied. Share the spreadsheet with the service account email as an editor.", e.Resource)
	case KindWorksheetMissing:
		return fmt.Sprintf("The worksheet %q does not exist. Create it or fix the worksheet name.", e.Resource)
	case KindUnreachable:
		return "The storage backend could not be reached. Check the network connection and try again."
	}
	return fmt.Sprintf("The storage backend failed: %v", e.Err)
}

// Sentinels for errors.Is.
var (
	ErrSpreadsheetNotFound = &BackendError{Kind: KindSpreadsheetNotFound}
	ErrPermissionDenied    = &BackendError{Kind: KindPermissionDenied}
	ErrWorksheetMissing    = &BackendError{Kind: KindWorksheetMissing}
	ErrUnreachable         = &BackendError{Kind: KindUnreachable}
)

// Diagnostic returns the user-facing text for err: the backend diagnostic
// when err is a BackendError, otherwise err's own message.
func Diagnostic(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Diagnostic()
	}
	return err.Error()
}
