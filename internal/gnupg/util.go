package gnupg

import (
	"os"

	vfs "github.com/twpayne/go-vfs"
)

// mkdirAll creates dir and any missing parents with owner-only permissions,
// matching gpg's expectations for its home directory.
func mkdirAll(fileSystem vfs.FS, dir string) error {
	return vfs.MkdirAll(fileSystem, dir, 0o700)
}

// defaultUIDEmail returns email, or a $USER@$(hostname) fallback when it is
// empty.
func defaultUIDEmail(email string) string {
	if email != "" {
		return email
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return user + "@" + hostname
}
