package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/grammable/internal/auth"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
		Long:  "Add, list and remove accounts directly in the local database.",
	}

	cmd.AddCommand(newUserAddCmd(), newUserListCmd(), newUserRemoveCmd())

	return cmd
}

func newUserAddCmd() *cobra.Command {
	var name, password string

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create an account",
		Long:  "Create an account. The password is read from stdin when --password is not given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readPassword(); err != nil {
					return err
				}
			}
			return runUserAdd(cmd, args[0], name, password)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "account password")

	return cmd
}

func runUserAdd(cmd *cobra.Command, email, name, password string) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	u, err := auth.NewUserStore(database).Register(cmd.Context(), email, password, name)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(u)
	}

	fmt.Printf("User #%d (%s) created.\n", u.ID, u.Email)
	return nil
}

func readPassword() (string, error) {
	fmt.Print("Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			users, err := auth.NewUserStore(database).List(cmd.Context())
			if err != nil {
				return err
			}

			if isJSON() {
				if users == nil {
					users = []*auth.User{}
				}
				return printJSON(users)
			}

			return printUserTable(users)
		},
	}
}

func newUserRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email|id>",
		Short: "Remove an account",
		Long:  "Remove an account with its grams, comments, sessions and keys.",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserRemove,
	}
}

func runUserRemove(cmd *cobra.Command, args []string) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	users := auth.NewUserStore(database)

	var u *auth.User
	if id, perr := strconv.ParseInt(args[0], 10, 64); perr == nil {
		u, err = users.GetByID(cmd.Context(), id)
	} else {
		u, err = users.GetByEmail(cmd.Context(), args[0])
	}
	if errors.Is(err, auth.ErrUserNotFound) {
		return fmt.Errorf("no user %s", args[0])
	}
	if err != nil {
		return err
	}

	if err := users.Delete(cmd.Context(), u.ID); err != nil {
		return err
	}

	if isJSON() {
		return printJSON(map[string]interface{}{
			"id":      u.ID,
			"removed": true,
		})
	}

	fmt.Printf("User #%d (%s) removed.\n", u.ID, u.Email)
	return nil
}
