package buildinfo

// Populated via -ldflags at release build time.
var (
	Version   = "dev"
	Revision  = "unknown"
	BuildDate = "unknown"
)
