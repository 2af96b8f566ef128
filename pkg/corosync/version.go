package corosync

var (
	Version = "v0.0.0-in-progress"
	// Native is set to "linked" by builds that link libcpg and libcfg.
	Native = "stub"
)

// WrapperVersion returns the semantic version populated at build time via
// ldflags. In development it defaults to v0.0.0-in-progress.
func WrapperVersion() string {
	return Version
}
