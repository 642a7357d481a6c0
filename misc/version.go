// Package misc holds build time information.
package misc

var (
	appName = "blockdoc"
	version = "0.1.0-dev"
	gitHash = "unknown"
)

// GetAppName returns name of the program.
func GetAppName() string {
	return appName
}

// GetVersion returns program version, set at link time.
func GetVersion() string {
	return version
}

// GetGitHash returns commit the program was built from, set at link time.
func GetGitHash() string {
	return gitHash
}
