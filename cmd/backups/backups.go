package backups

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bachue/outrotate/cmd/helpers"
	"github.com/bachue/outrotate/rotate"
)

var (
	BackupsCmd = &cobra.Command{
		Use:           "backups PATH",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "This command lists the backups of a log file.",
		Long: `
Usage: outrotate backups PATH

  Lists the rotated backups of the log file PATH, oldest generation last.
  Only files named PATH.<N> or PATH.<N>.gz are listed.

      $ outrotate backups /var/log/app.log
`,
		Args: cobra.ExactArgs(1),
		RunE: runBackups,
	}
)

func runBackups(cmd *cobra.Command, args []string) error {
	found, err := rotate.ListBackups(args[0])
	if err != nil {
		return fmt.Errorf("error listing backups: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(found) == 0 {
		fmt.Fprintln(out, "No backups found.")
		return nil
	}

	headers := []string{"Generation", "Name", "Compressed", "Size", "Modified"}
	data := make([][]any, 0, len(found))
	for _, b := range found {
		data = append(data, []any{
			b.Number,
			b.Name,
			b.Compressed,
			humanize.IBytes(uint64(b.Size)),
			humanize.Time(b.ModTime),
		})
	}

	return helpers.PrintTable(out, headers, data)
}
