package shell

import "fmt"

// ShellType represents a shell whose startup file grip can edit.
type ShellType string

const (
	ShellBash ShellType = "bash"
	ShellZsh  ShellType = "zsh"
	ShellFish ShellType = "fish"
	// ShellPOSIX covers every other shell; it is configured through ~/.profile.
	ShellPOSIX ShellType = "sh"
)

// String returns the string representation of the shell type
func (s ShellType) String() string {
	return string(s)
}

// Result describes the outcome of a PATH change.
type Result struct {
	// Added is true when dir was not on the persistent PATH and now is.
	Added bool
	// Removed is true when dir was on the persistent PATH and no longer is.
	Removed bool
	// Location names where the PATH is stored: an rc file path or the
	// Windows registry key.
	Location string
}

// DetectionResult contains the result of shell detection
type DetectionResult struct {
	Shell ShellType
	// Method describes how the shell was detected
	Method string
	// ShellPath is the filesystem path or process name of the shell
	ShellPath string
}

// RCFileError represents an error with shell rc file operations
type RCFileError struct {
	Path    string
	Message string
	Cause   error
}

func (e *RCFileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rc file error (%s): %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("rc file error (%s): %s", e.Path, e.Message)
}

func (e *RCFileError) Unwrap() error {
	return e.Cause
}
