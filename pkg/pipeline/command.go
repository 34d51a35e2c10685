package pipeline

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const commandWaitDelay = 5 * time.Second

// launchCommand runs one step as a child process in its own process group.
// Cancelling ctx sends SIGTERM, or kills the process on Windows.
func launchCommand(ctx context.Context, logger *logrus.Logger, env []string, name string, args ...string) error {
	//nolint:gosec
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env

	stdout := logger.Writer()
	defer stdout.Close()

	stderr := logger.WriterLevel(logrus.WarnLevel)
	defer stderr.Close()

	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = commandWaitDelay
	cmd.Cancel = func() error {
		logger.Debug("Sending termination signal to command")

		switch runtime.GOOS {
		case "windows":
			return cmd.Process.Kill()
		default:
			return cmd.Process.Signal(syscall.SIGTERM)
		}
	}
	setNewProcessGroup(cmd)

	logger.Debugf("Launching command: %v", cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("command could not launch: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("command exited with error: %w", err)
	}

	return nil
}
