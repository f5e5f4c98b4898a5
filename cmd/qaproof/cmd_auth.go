package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"qaproof/internal/auth"
)

// authCmd manages the signed-in session
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in, sign out, and inspect the session",
	Long: `Manage authentication against the proofreading server.

Available subcommands:
  login    - Sign in with username and password
  logout   - Sign out and clear the stored token
  status   - Show who is signed in
  password - Change the account password`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Sign in with username and password",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		app.auth.Logout(cmd.Context())
		fmt.Println("Signed out.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show who is signed in",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch app.auth.State() {
		case auth.StateAuthenticated:
			u := app.auth.User()
			fmt.Printf("Signed in as %s (%s)\n", u.Username, u.Role)
		case auth.StateGuest:
			fmt.Println("Guest mode: local editing only.")
		default:
			fmt.Println("Not signed in.")
		}
		return nil
	},
}

var authPasswordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change the account password",
	RunE:  runAuthPassword,
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)
	username := ""
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		username = strings.TrimSpace(line)
	}
	fmt.Print("Password: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	password := strings.TrimSpace(line)

	user, err := app.auth.Login(cmd.Context(), username, password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s.\n", user.Username)
	return nil
}

func runAuthPassword(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Current password: ")
	oldLine, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Print("New password: ")
	newLine, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	if err := app.client.ChangePassword(cmd.Context(), strings.TrimSpace(oldLine), strings.TrimSpace(newLine)); err != nil {
		return err
	}
	fmt.Println("Password changed.")
	return nil
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authPasswordCmd)
}
