package wire

// Version constants for the payload format.
const (
	// FormatVersion is the newest payload format this package writes and reads.
	FormatVersion = 1

	// EngineVersion is the rtsl engine version.
	EngineVersion = "0.1.0"
)
