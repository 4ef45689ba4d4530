package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dhcgn/attachment-archiver/config"
	"github.com/dhcgn/attachment-archiver/ids"
	"github.com/dhcgn/attachment-archiver/layout"
)

type resolution struct {
	ID     string
	Path   string
	Status string
	Size   int64
}

const (
	statusFound   = "found"
	statusMissing = "missing"
	statusInvalid = "invalid"
)

func newResolveCommand() *cobra.Command {
	var (
		attachmentsDir string
		csvPath        string
	)

	cmd := &cobra.Command{
		Use:   "resolve <ids...>",
		Short: "Check which attachments exist without writing an archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(attachmentsDir) == "" {
				attachmentsDir = config.DefaultAttachmentsDir
			}

			tokens := ids.Parse(strings.Join(args, "\n"))
			if len(tokens) == 0 {
				return fmt.Errorf("no attachment ids given")
			}

			results, err := resolveAll(attachmentsDir, tokens)
			if err != nil {
				return err
			}

			data := pterm.TableData{{"ID", "Path", "Status", "Size"}}
			failed := 0
			for _, r := range results {
				size := ""
				if r.Status == statusFound {
					size = units.HumanSize(float64(r.Size))
				} else {
					failed++
				}
				data = append(data, []string{r.ID, r.Path, r.Status, size})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render(); err != nil {
				return fmt.Errorf("render table: %w", err)
			}

			if csvPath != "" {
				if err := saveCSVReport(csvPath, results); err != nil {
					return fmt.Errorf("error saving CSV report: %w", err)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d attachments missing or invalid", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&attachmentsDir, "attachments", "a", config.DefaultAttachmentsDir, "Root folder of the sharded attachment store")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write the results to this CSV file")
	return cmd
}

// resolveAll checks every id instead of stopping at the first problem.
func resolveAll(base string, tokens []string) ([]resolution, error) {
	results := make([]resolution, 0, len(tokens))
	for _, id := range tokens {
		rel, err := layout.DerivePath(id)
		if err != nil {
			results = append(results, resolution{ID: id, Status: statusInvalid})
			continue
		}

		abs := layout.Resolve(base, rel)
		info, err := os.Stat(abs)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			results = append(results, resolution{ID: id, Path: abs, Status: statusMissing})
		case err != nil:
			return nil, fmt.Errorf("stat %s: %w", abs, err)
		case !info.Mode().IsRegular():
			results = append(results, resolution{ID: id, Path: abs, Status: statusMissing})
		default:
			results = append(results, resolution{ID: id, Path: abs, Status: statusFound, Size: info.Size()})
		}
	}
	return results, nil
}

func saveCSVReport(path string, results []resolution) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"ID", "Path", "Status", "Size"}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{r.ID, r.Path, r.Status, strconv.FormatInt(r.Size, 10)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}
