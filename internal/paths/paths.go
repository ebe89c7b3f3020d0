// Package paths resolves the default locations of configuration and
// state files, following the XDG base directory layout.
package paths

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// appDir is the subdirectory used under each XDG base directory.
const appDir = "mailsheet"

// ConfigDir returns the directory searched for the configuration
// file.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appDir)
}

// DataDir returns the directory state files are written to.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appDir)
}

// CredentialsFile returns the default location of the OAuth client
// secrets file downloaded from the Google Cloud console.
func CredentialsFile() string {
	return filepath.Join(ConfigDir(), "credentials.json")
}

// TokenFile returns the default location of the saved OAuth token.
func TokenFile() string {
	return filepath.Join(ConfigDir(), "token.json")
}

// StateDBFile returns the default location of the delivered-id
// database.
func StateDBFile() string {
	return filepath.Join(DataDir(), "mailsheet.db")
}

// StateFile returns the default location of the plain text
// delivered-id file.
func StateFile() string {
	return filepath.Join(DataDir(), "processed.txt")
}
