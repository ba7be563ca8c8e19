package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	termio "github.com/hnimtadd/termcore"
)

var (
	replayCols int
	replayRows int

	replayCmd = &cobra.Command{
		Use:   "replay [file]",
		Short: "Feed a recorded byte stream through the emulator and dump the final screen",
		Long: `Replay reads raw terminal output (a script(1) capture, a saved pty
recording, anything with escape sequences) from the given file or from
a pipe on stdin, runs it through the emulator, and prints the plain
text of the resulting screen.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReplay,
	}
)

func init() {
	replayCmd.Flags().IntVar(&replayCols, "cols", 80, "grid width")
	replayCmd.Flags().IntVar(&replayRows, "rows", 24, "grid height")
}

func runReplay(cmd *cobra.Command, args []string) error {
	log, cleanup, err := newLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	var input io.Reader
	switch {
	case len(args) == 1:
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	case !term.IsTerminal(int(os.Stdin.Fd())):
		input = os.Stdin
	default:
		return errors.New("no input: pass a file or pipe a recording to stdin")
	}

	tio := termio.NewTerminalIO(termio.Options{
		Rows:   replayRows,
		Cols:   replayCols,
		Logger: log,
	})

	buf := make([]byte, 4096)
	for {
		n, rerr := input.Read(buf)
		if n > 0 {
			if perr := tio.ProcessOutput(buf[:n]); perr != nil {
				return perr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), tio.DumpString())
	if title := tio.Handler().Title(); title != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "title: %s\n", title)
	}
	return nil
}
