// Package identity resolves the stable user id used for the persistence
// key and the attempt-record path. There is no other identity contract:
// without a configured id the client runs as the guest sentinel, which
// still gets resumable sessions and attempt counting on this device.
package identity

import (
	"os"
	"strings"
)

// EnvUser is the environment variable naming the current user.
const EnvUser = "DEVPATH_USER"

// Guest is the sentinel id for an unidentified user.
const Guest = "guest"

// UserID returns the configured user id, or Guest.
func UserID() string {
	if v := strings.TrimSpace(os.Getenv(EnvUser)); v != "" {
		return v
	}
	return Guest
}
