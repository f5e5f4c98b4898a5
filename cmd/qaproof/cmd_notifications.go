package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var notificationsPage int

// notificationsCmd lists and acknowledges notifications
var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notify"},
	Short:   "List notifications",
	RunE:    runNotifications,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		return app.client.MarkNotificationRead(cmd.Context(), args[0])
	},
}

func runNotifications(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	list, pg, err := app.client.Notifications(cmd.Context(), notificationsPage, 20)
	if err != nil {
		return err
	}
	unread, err := app.client.UnreadCount(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tTITLE\t")
	for _, n := range list {
		mark := ""
		if !n.IsRead {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.CreatedAt.Format("01-02 15:04"), trim(n.Title, 50), mark)
	}
	w.Flush()
	fmt.Printf("Page %d/%d, %d unread\n", pg.Page, pg.TotalPages, unread)
	return nil
}

func init() {
	notificationsCmd.Flags().IntVar(&notificationsPage, "page", 1, "page number")
	notificationsCmd.AddCommand(notificationsReadCmd)
}
