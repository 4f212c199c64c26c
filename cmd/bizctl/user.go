package main

import (
	"fmt"

	"github.com/erp/bizdesk/internal/application/identity"
	"github.com/spf13/cobra"
)

var (
	userUsername    string
	userPassword    string
	userRole        string
	userDisplayName string
	userEmail       string
)

// userCmd manages operator accounts
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage operator accounts",
}

// userCreateCmd creates an account, typically the first administrator
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an operator account",
	Long: `Create an operator account directly in the database.

Use this to bootstrap the first administrator; further accounts can be
created by an administrator through the API.`,
	Args: cobra.NoArgs,
	RunE: runUserCreate,
}

// userListCmd prints every account
var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List operator accounts",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

func init() {
	userCreateCmd.Flags().StringVar(&userUsername, "username", "", "Login name (required)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Initial password, 8 to 72 characters (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", "admin", "Role: admin or staff")
	userCreateCmd.Flags().StringVar(&userDisplayName, "name", "", "Display name")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	if n := len(userPassword); n < 8 || n > 72 {
		return fmt.Errorf("password must be 8 to 72 characters")
	}
	if userRole != "admin" && userRole != "staff" {
		return fmt.Errorf("invalid role %q", userRole)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	user, err := identity.NewUserService(s.repos.Users, log).Create(ctx, identity.CreateUserRequest{
		Username:    userUsername,
		Password:    userPassword,
		Role:        userRole,
		DisplayName: userDisplayName,
		Email:       userEmail,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s (%s)\n", user.Role, user.Username, user.ID)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	users, err := identity.NewUserService(s.repos.Users, log).List(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, u := range users {
		fmt.Fprintf(out, "%s\t%-20s\t%-6s\t%s\n", u.ID, u.Username, u.Role, u.Status)
	}
	return nil
}
