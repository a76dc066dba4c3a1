package command

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/storage"
)

func newMergeCommand(cli *CLI) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "merge <base-file> <import-file>...",
		Short: "Import scene files into a base scene and write the result",
		Long: heading("mrmlctl merge <base-file> <import-file>... [-o <out>]") + "\n\n" +
			"Each import file is merged as one batch. IDs that collide with nodes\n" +
			"already in the scene are renamed and the references inside the batch\n" +
			"follow; the renames are reported on stderr.\n",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.load(args[0])
			if err != nil {
				return err
			}
			for _, path := range args[1:] {
				remap, err := importFile(s, path)
				if err != nil {
					return err
				}
				olds := make([]string, 0, len(remap))
				for old := range remap {
					olds = append(olds, old)
				}
				slices.Sort(olds)
				for _, old := range olds {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s -> %s\n", faint(path+":"), old, remap[old])
				}
			}

			if output == "" {
				return storage.WriteScene(cli.Out, s)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := storage.WriteScene(f, s); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the merged scene here instead of stdout")
	return cmd
}
