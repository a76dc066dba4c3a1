package command

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/hierarchy"
)

func newTreeCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <scene-file>",
		Short: "Print the hierarchy nodes of a scene file as a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.load(args[0])
			if err != nil {
				return err
			}
			var walk func(n *hierarchy.Node, depth int)
			walk = func(n *hierarchy.Node, depth int) {
				line := strings.Repeat("  ", depth) + n.ID()
				if name := n.Name(); name != "" {
					line += " " + faint(name)
				}
				if a := n.AssociatedNode(); a != nil {
					line += " -> " + a.Base().ID()
				}
				cli.Printf("%s\n", line)
				for _, c := range n.ChildrenNodes() {
					walk(c, depth+1)
				}
			}
			for _, n := range hierarchy.For(s).TopLevel() {
				walk(n, 0)
			}
			return nil
		},
	}
}
