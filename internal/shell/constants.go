package shell

const (
	// EnvRCFile overrides the rc file grip edits.
	EnvRCFile = "GRIP_RC_FILE"

	// managedMarker ends every line grip writes to an rc file.
	managedMarker = "# grip"
)
