package command

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/diagnose"
)

func newCheckCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "check <scene-file>...",
		Short: "Report dangling references and reference cycles",
		Long: heading("mrmlctl check <scene-file>...") + "\n\n" +
			"Every file is loaded on its own. Dangling references fail the check;\n" +
			"reference cycles are listed but allowed.\n",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				s, err := cli.load(path)
				if err != nil {
					cli.Printf("%s %s: %s\n", bad("Error!"), path, err)
					failed = true
					continue
				}
				r := diagnose.Check(s)
				for _, d := range r.Dangling {
					cli.Printf("%s %s: dangling reference %s\n", bad("Error!"), path, d)
				}
				for _, c := range r.Cycles {
					cli.Printf("%s %s: reference cycle %s\n", faint("Note:"), path, strings.Join(c, " -> "))
				}
				if !r.OK() {
					failed = true
					continue
				}
				cli.Printf("%s %s: %d nodes, no dangling references.\n", ok("Valid!"), path, s.NumberOfNodes())
			}
			if failed {
				return errors.New("")
			}
			return nil
		},
	}
}
