// Package prompt reads interactive input for the create command. Passwords
// are read with terminal echo disabled; when stdin is not a terminal (piped
// or scripted use) it falls back to plain line reads.
package prompt

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadUsername prompts on stderr and reads one trimmed line from stdin.
func ReadUsername() (string, error) {
	fmt.Fprint(os.Stderr, "Username for new SFTP user: ")
	line, err := readLine()
	if err != nil {
		return "", fmt.Errorf("reading username: %w", err)
	}
	return line, nil
}

// ReadSecret prompts for a password twice with echo disabled and returns both
// entries. The caller decides whether they match; returning both keeps the
// equality check in the validation layer.
func ReadSecret(username string) (string, string, error) {
	stdinFd := int(os.Stdin.Fd())

	if !term.IsTerminal(stdinFd) {
		// Piped input: read two lines without prompting.
		first, err := readLine()
		if err != nil {
			return "", "", fmt.Errorf("reading password: %w", err)
		}
		second, err := readLine()
		if err != nil {
			return "", "", fmt.Errorf("reading password confirmation: %w", err)
		}
		return first, second, nil
	}

	fmt.Fprintf(os.Stderr, "Password for user %s: ", username)
	first, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", "", fmt.Errorf("reading password confirmation: %w", err)
	}

	return string(first), string(second), nil
}

// stdin is shared so buffered bytes survive across consecutive line reads.
var stdin = bufio.NewReader(os.Stdin)

func readLine() (string, error) {
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
