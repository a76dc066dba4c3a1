package command

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/query"
)

func newLsCommand(cli *CLI) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "ls <scene-file>",
		Short: "List the nodes of a scene file",
		Long: heading("mrmlctl ls <scene-file> [--filter <expr>]") + "\n\n" +
			"List nodes in scene order. --filter keeps the nodes for which the\n" +
			"expression is true; it sees id, name, class, tag, description,\n" +
			"hidden, selectable, singleton, attributes, references and referencedBy.\n\n" +
			"Examples:\n" +
			"  mrmlctl ls scene.yaml --filter 'class == \"VolumeNode\"'\n" +
			"  mrmlctl ls scene.yaml --filter 'referencedBy == 0'\n",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.load(args[0])
			if err != nil {
				return err
			}
			nodes, err := query.Select(s.Nodes(), filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cli.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", heading("ID"), heading("CLASS"), heading("NAME"), heading("REFERENCES"))
			for _, n := range nodes {
				env := query.EnvFor(n)
				var refs []string
				for _, role := range n.Base().ReferenceRoles() {
					refs = append(refs, role+"="+strings.Join(env.References[role], ","))
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", env.ID, env.Class, env.Name, faint(strings.Join(refs, " ")))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Filter expression")
	return cmd
}
