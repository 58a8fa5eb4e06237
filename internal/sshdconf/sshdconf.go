// Package sshdconf maintains per-user Match blocks in an sshd drop-in
// configuration file. Each block is delimited by BEGIN/END markers carrying
// the username, so reapplying a rule for the same user replaces the block in
// place instead of duplicating it. Unrelated lines are preserved unchanged.
package sshdconf

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"sftp-provision/types"
)

// Patcher applies and removes per-user access rules in one drop-in file.
type Patcher struct {
	path    string
	baseDir string
	dryRun  bool
	logger  *logrus.Logger
}

// New creates a Patcher for the drop-in file at path. baseDir is the chroot
// base written into each rule.
func New(path, baseDir string, dryRun bool, logger *logrus.Logger) *Patcher {
	return &Patcher{
		path:    path,
		baseDir: baseDir,
		dryRun:  dryRun,
		logger:  logger,
	}
}

func beginMarker(username string) string {
	return "# BEGIN sftp-provision user " + username
}

func endMarker(username string) string {
	return "# END sftp-provision user " + username
}

// ruleBlock renders the canonical Match stanza for a username, including the
// delimiting markers.
func (p *Patcher) ruleBlock(username string) []string {
	return []string{
		beginMarker(username),
		"Match User " + username,
		"    ChrootDirectory " + p.baseDir,
		"    ForceCommand internal-sftp",
		"    AllowTcpForwarding no",
		"    X11Forwarding no",
		"    PasswordAuthentication yes",
		"    PubkeyAuthentication no",
		endMarker(username),
	}
}

// ApplyRule inserts or refreshes the access rule for username. A missing
// drop-in file is treated as empty and created. The rewrite goes through a
// temp file and an atomic rename, so an interrupted run leaves the original
// file intact.
func (p *Patcher) ApplyRule(username string) error {
	if p.dryRun {
		p.logger.WithFields(logrus.Fields{
			"file":     p.path,
			"username": username,
		}).Info("🔍 DRY-RUN: Would apply sshd access rule")
		return nil
	}

	p.logger.WithFields(logrus.Fields{
		"file":     p.path,
		"username": username,
	}).Info("Applying sshd access rule")

	lines, mode, err := p.readLines()
	if err != nil {
		return types.WrapKind(types.KindConfigUnwritable, fmt.Errorf("read %s: %w", p.path, err))
	}

	updated := spliceBlock(lines, username, p.ruleBlock(username))

	if err := writeFileAtomic(p.path, joinLines(updated), mode); err != nil {
		return types.WrapKind(types.KindConfigUnwritable, fmt.Errorf("write %s: %w", p.path, err))
	}

	return nil
}

// HasRule reports whether a rule block for username is present.
func (p *Patcher) HasRule(username string) (bool, error) {
	lines, _, err := p.readLines()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", p.path, err)
	}

	_, _, found := findBlock(lines, username)
	return found, nil
}

// RemoveRule deletes the rule block for username, if present. Removing an
// absent rule is not an error.
func (p *Patcher) RemoveRule(username string) error {
	if p.dryRun {
		p.logger.WithFields(logrus.Fields{
			"file":     p.path,
			"username": username,
		}).Info("🔍 DRY-RUN: Would remove sshd access rule")
		return nil
	}

	lines, mode, err := p.readLines()
	if err != nil {
		return types.WrapKind(types.KindConfigUnwritable, fmt.Errorf("read %s: %w", p.path, err))
	}

	begin, end, found := findBlock(lines, username)
	if !found {
		return nil
	}

	updated := append([]string{}, lines[:begin]...)
	rest := lines[end+1:]
	// Drop the blank separator left behind in front of the removed block.
	if len(updated) > 0 && updated[len(updated)-1] == "" && (len(rest) == 0 || rest[0] == "") {
		updated = updated[:len(updated)-1]
	}
	updated = append(updated, rest...)

	if err := writeFileAtomic(p.path, joinLines(updated), mode); err != nil {
		return types.WrapKind(types.KindConfigUnwritable, fmt.Errorf("write %s: %w", p.path, err))
	}

	return nil
}

// readLines loads the drop-in file as a line slice. A missing file yields an
// empty slice and the default mode.
func (p *Patcher) readLines() ([]string, os.FileMode, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0644, nil
		}
		return nil, 0, err
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(p.path); err == nil {
		mode = info.Mode().Perm()
	}

	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, mode, nil
	}
	return strings.Split(text, "\n"), mode, nil
}

// findBlock locates the marker-delimited block for username. When the end
// marker is missing the block extends to the last line, so a previously
// truncated block is still replaced as a unit.
func findBlock(lines []string, username string) (begin, end int, found bool) {
	beginLine := beginMarker(username)
	endLine := endMarker(username)

	begin = -1
	for i, line := range lines {
		if strings.TrimSpace(line) == beginLine {
			begin = i
			break
		}
	}
	if begin < 0 {
		return 0, 0, false
	}

	for i := begin + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == endLine {
			return begin, i, true
		}
	}
	return begin, len(lines) - 1, true
}

// spliceBlock replaces the existing block for username with the canonical
// content, or appends it (separated by a blank line) when absent.
func spliceBlock(lines []string, username string, block []string) []string {
	begin, end, found := findBlock(lines, username)
	if found {
		updated := append([]string{}, lines[:begin]...)
		updated = append(updated, block...)
		updated = append(updated, lines[end+1:]...)
		return updated
	}

	updated := append([]string{}, lines...)
	if len(updated) > 0 {
		updated = append(updated, "")
	}
	return append(updated, block...)
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return []byte{}
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
