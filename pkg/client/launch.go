package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// LaunchSelf returns a Launcher that starts the current executable with args
// as a detached background process.
func LaunchSelf(args ...string) Launcher {
	return func(ctx context.Context) error {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		return LaunchCommand(exe, args...)(ctx)
	}
}

// LaunchCommand returns a Launcher that starts name with args detached from
// the calling process.
func LaunchCommand(name string, args ...string) Launcher {
	return func(context.Context) error {
		// Not CommandContext: the service must outlive the caller.
		cmd := exec.Command(name, args...)
		detach(cmd)
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
		return cmd.Process.Release()
	}
}
