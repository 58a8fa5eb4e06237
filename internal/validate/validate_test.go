package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"sftp-provision/types"
)

func TestUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		wantKind types.ErrorKind
	}{
		{name: "simple lowercase", username: "alice"},
		{name: "with underscore", username: "john_doe"},
		{name: "with hyphen and digits", username: "backup-agent-42"},
		{name: "leading underscore", username: "_svc"},
		{name: "uppercase allowed", username: "Alice"},
		{name: "max length", username: strings.Repeat("a", 32)},
		{name: "empty", username: "", wantKind: types.KindInvalidFormat},
		{name: "too long", username: strings.Repeat("a", 33), wantKind: types.KindInvalidFormat},
		{name: "leading digit", username: "1alice", wantKind: types.KindInvalidFormat},
		{name: "leading hyphen", username: "-alice", wantKind: types.KindInvalidFormat},
		{name: "whitespace", username: "john doe", wantKind: types.KindInvalidFormat},
		{name: "dot", username: "john.doe", wantKind: types.KindInvalidFormat},
		{name: "shell metacharacters", username: "alice;rm", wantKind: types.KindInvalidFormat},
		{name: "non-ascii", username: "jöhn", wantKind: types.KindInvalidFormat},
		{name: "reserved root", username: "root", wantKind: types.KindReservedName},
		{name: "reserved daemon", username: "daemon", wantKind: types.KindReservedName},
		{name: "reserved sshd", username: "sshd", wantKind: types.KindReservedName},
		{name: "reserved mixed case", username: "Root", wantKind: types.KindReservedName},
		{name: "collides with group", username: "sftpusers", wantKind: types.KindReservedName},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Username(tc.username, "sftpusers")
			if tc.wantKind == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, tc.wantKind, types.KindOf(err))
		})
	}
}

func TestSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		secret   string
		wantKind types.ErrorKind
	}{
		{name: "long enough", username: "alice", secret: "correcthorse"},
		{name: "exactly minimum", username: "alice", secret: "12345678"},
		{name: "empty", username: "alice", secret: "", wantKind: types.KindTooWeak},
		{name: "too short", username: "alice", secret: "short", wantKind: types.KindTooWeak},
		{name: "equals username", username: "long_username", secret: "long_username", wantKind: types.KindTooWeak},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Secret(tc.username, tc.secret)
			if tc.wantKind == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, tc.wantKind, types.KindOf(err))
		})
	}
}

func TestSecretsMatch(t *testing.T) {
	t.Parallel()

	require.NoError(t, SecretsMatch("hunter22", "hunter22"))

	err := SecretsMatch("pass1", "pass2")
	require.Error(t, err)
	require.Equal(t, types.KindMismatch, types.KindOf(err))
}
