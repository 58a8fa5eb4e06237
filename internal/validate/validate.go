// Package validate holds the pure input-policy checks that gate the
// provisioning workflow. Nothing here touches the host; every check runs
// before the first privileged call.
package validate

import (
	"regexp"
	"strings"

	"sftp-provision/types"
)

const (
	// MaxUsernameLength matches the useradd account-name limit on Linux.
	MaxUsernameLength = 32

	// MinSecretLength is the minimum accepted password length.
	MinSecretLength = 8
)

// usernameRe allows letters, digits, hyphen, and underscore, and rejects a
// leading digit or hyphen.
var usernameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// reservedNames are system accounts a provisioning run must never collide
// with.
var reservedNames = map[string]struct{}{
	"root":     {},
	"daemon":   {},
	"bin":      {},
	"sys":      {},
	"sync":     {},
	"shutdown": {},
	"halt":     {},
	"mail":     {},
	"operator": {},
	"games":    {},
	"ftp":      {},
	"nobody":   {},
	"sshd":     {},
	"backup":   {},
	"proxy":    {},
	"www-data": {},
}

// Username checks a candidate account name against host policy: 1-32
// characters of [A-Za-z0-9_-], not starting with a digit or hyphen, and not
// colliding with a reserved system account or the shared SFTP group name.
func Username(username, group string) error {
	if len(username) == 0 || len(username) > MaxUsernameLength || !usernameRe.MatchString(username) {
		return types.KindErrorf(types.KindInvalidFormat,
			"username must be 1-%d characters of letters, digits, hyphen, or underscore, and must not start with a digit or hyphen",
			MaxUsernameLength)
	}

	if _, ok := reservedNames[strings.ToLower(username)]; ok {
		return types.KindErrorf(types.KindReservedName, "username %q is a reserved system account", username)
	}

	if username == group {
		return types.KindErrorf(types.KindReservedName, "username %q collides with the SFTP group name", username)
	}

	return nil
}

// Secret checks password policy. The policy is intentionally minimal for a
// provisioning tool: a length floor plus a username-equality check, no
// character-class requirements.
func Secret(username, secret string) error {
	if len(secret) < MinSecretLength {
		return types.KindErrorf(types.KindTooWeak, "password must be at least %d characters", MinSecretLength)
	}

	if secret == username {
		return types.KindErrorf(types.KindTooWeak, "password must not equal the username")
	}

	return nil
}

// SecretsMatch confirms the two password entries are equal. This is a pure
// string comparison and must run before any privileged call.
func SecretsMatch(a, b string) error {
	if a != b {
		return types.KindErrorf(types.KindMismatch, "passwords do not match")
	}
	return nil
}
