package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	termio "github.com/hnimtadd/termcore"
)

var runCmd = &cobra.Command{
	Use:   "run [-- command [args...]]",
	Short: "Run a command inside the emulator, rendered with tcell",
	Long: `Run starts the given command (default: $SHELL) on a pty, feeds its
output through the emulator, and mirrors the grid onto the current
terminal. Shift+PgUp/PgDn scroll the viewport; Shift+Home/End jump to
the scrollback edges. The session ends when the command exits.`,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	log, cleanup, err := newLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.EnablePaste()

	cols, rows := screen.Size()

	shellArgs := args
	if len(shellArgs) == 0 {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		shellArgs = []string{shell}
	}
	child := exec.Command(shellArgs[0], shellArgs[1:]...)

	surface := newViewerSurface()
	tio := termio.NewTerminalIO(termio.Options{
		Rows:                  rows,
		Cols:                  cols,
		Surface:               surface,
		ClipboardWriteAllowed: true,
		Logger:                log,
	})

	p, err := termio.StartCommand(child, rows, cols, 0, 0)
	if err != nil {
		return err
	}

	loop := termio.NewLoop(termio.LoopOptions{
		IO:      tio,
		Backend: p,
		Logger:  log,
	})
	go loop.Run()
	defer loop.Stop()

	v := newViewer(screen, loop, surface)
	v.run()
	return nil
}
