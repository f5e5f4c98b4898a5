package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var usersSearch string

// usersCmd covers user and group lookups for task assignment
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Browse users and groups for task assignment",
	Long: `Look up who a task can be assigned to.

Available subcommands:
  tree   - Show users grouped for assignment
  groups - List your user groups
  bind   - Attach user groups to an admin group`,
}

var usersTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show users grouped for assignment",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		tree, err := app.client.UsersTree(cmd.Context(), usersSearch)
		if err != nil {
			return err
		}
		if len(tree) == 0 {
			fmt.Println("No users found.")
			return nil
		}
		for _, node := range tree {
			fmt.Printf("%s (%d users)\n", node.Group.Name, len(node.Users))
			for _, u := range node.Users {
				name := u.Username
				if u.DisplayName != "" {
					name = fmt.Sprintf("%s (%s)", u.DisplayName, u.Username)
				}
				fmt.Printf("  %s  %s\n", u.ID, name)
			}
		}
		return nil
	},
}

var usersGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List your user groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		groups, err := app.client.UserGroups(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMEMBERS")
		for _, g := range groups {
			fmt.Fprintf(w, "%s\t%s\t%d\n", g.ID, g.Name, len(g.UserIDs))
		}
		return w.Flush()
	},
}

var usersBindCmd = &cobra.Command{
	Use:   "bind <admin-group-id> <user-group-id>...",
	Short: "Attach user groups to an admin group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		if err := app.client.BindGroups(cmd.Context(), args[0], args[1:]); err != nil {
			return err
		}
		fmt.Printf("Bound %d groups.\n", len(args)-1)
		return nil
	},
}

func init() {
	usersTreeCmd.Flags().StringVar(&usersSearch, "search", "", "filter users by name")

	usersCmd.AddCommand(usersTreeCmd)
	usersCmd.AddCommand(usersGroupsCmd)
	usersCmd.AddCommand(usersBindCmd)
}
