// Package player spawns the external media player. The command comes
// from user configuration as a template; the playback target (a local
// file path or a stream URL) is substituted for the %s placeholder, or
// appended when no placeholder is present.
package player

import (
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// PlayOrStream launches the configured player command against target.
// The process is detached; only failure to spawn is reported. The
// player writing to the terminal or exiting nonzero is its own
// business.
func PlayOrStream(command, target string) error {
	args := buildArgs(command, target)
	if len(args) == 0 {
		return fmt.Errorf("empty play command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}

	// Reap the child so it doesn't linger as a zombie.
	go func() {
		if err := cmd.Wait(); err != nil {
			log.WithField("command", args[0]).WithError(err).Debug("Player exited with error")
		}
	}()

	return nil
}

func buildArgs(command, target string) []string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}

	substituted := false
	args := make([]string, 0, len(fields)+1)
	for _, field := range fields {
		if strings.Contains(field, "%s") {
			field = strings.ReplaceAll(field, "%s", target)
			substituted = true
		}
		args = append(args, field)
	}
	if !substituted {
		args = append(args, target)
	}
	return args
}
