package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRefsCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "refs <scene-file> <node-id>",
		Short: "Show the references a node holds and the nodes referencing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.load(args[0])
			if err != nil {
				return err
			}
			id := args[1]
			n := s.NodeByID(id)
			if n == nil {
				return fmt.Errorf("node %q not found in %s", id, args[0])
			}

			cli.Printf("%s %s (%s)\n", heading("Node"), id, n.ClassName())
			cli.Printf("%s\n", heading("References:"))
			for _, role := range n.Base().ReferenceRoles() {
				for i, target := range n.Base().ReferenceIDs(role) {
					status := ok("ok")
					if s.NodeByID(target) == nil {
						status = bad("dangling")
					}
					cli.Printf("  %s[%d] -> %s %s\n", role, i, target, status)
				}
			}
			cli.Printf("%s\n", heading("Referenced by:"))
			for _, loc := range s.ReferencesTo(id) {
				cli.Printf("  %s %s[%d]\n", loc.Node.Base().ID(), loc.Role, loc.Index)
			}
			return nil
		},
	}
}
