package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dhcgn/attachment-archiver/config"
	"github.com/dhcgn/attachment-archiver/ids"
)

// stdinIsTerminal is a test seam for term.IsTerminal on stdin.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readIDText joins every id source into one text for ids.Parse: positional
// args, --ids and --ids-file. With none of them set it prompts on a terminal
// and otherwise reads stdin to EOF.
func readIDText(cmd *cobra.Command, cfg config.Config, args []string) (string, error) {
	parts := append([]string(nil), args...)
	if cfg.IDs != "" {
		parts = append(parts, cfg.IDs)
	}

	if cfg.IDsFile != "" {
		var (
			data []byte
			err  error
		)
		if cfg.IDsFile == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(cfg.IDsFile)
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, string(data))
	}

	if len(parts) > 0 {
		return strings.Join(parts, "\n"), nil
	}

	if stdinIsTerminal() {
		return promptIDs(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr())
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// promptIDs reads lines until an empty one. Each line keeps only the characters
// allowed in the id field.
func promptIDs(reader *bufio.Reader, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Enter attachment ids (digits, commas, spaces); empty line to finish\n> "); err != nil {
		return "", err
	}

	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}

		line = ids.FilterInput(strings.TrimRight(line, "\r\n"))
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)

		if errors.Is(err, io.EOF) {
			break
		}
		fmt.Fprint(w, "> ")
	}
	return strings.Join(lines, "\n"), nil
}
