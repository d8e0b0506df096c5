/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/volunteer-hub/apiserver/config"
	"github.com/volunteer-hub/apiserver/internal/db"
	"github.com/volunteer-hub/apiserver/internal/services"
	"github.com/volunteer-hub/apiserver/internal/store"
	"github.com/volunteer-hub/apiserver/types"
)

var adminInput services.RegisterInput

// adminCmd groups administrator account commands.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account",
	Long: `Create an administrator account. The password is read from
ADMIN_PASSWORD when --password is not given.

	volunteer-hub admin create --email admin@example.com --name Admin --phone 555-0100
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminInput.Password == "" {
			adminInput.Password = os.Getenv("ADMIN_PASSWORD")
		}
		if adminInput.Password == "" {
			return errors.New("a password is required (--password or ADMIN_PASSWORD)")
		}

		cfg := config.LoadConfig()
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		userService := services.NewUserService(store.NewUserRepository(conn), logger)
		user, err := userService.CreateUser(cmd.Context(), adminInput, types.RoleAdmin)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().StringVar(&adminInput.Email, "email", "", "admin email address")
	adminCreateCmd.Flags().StringVar(&adminInput.Name, "name", "Administrator", "display name")
	adminCreateCmd.Flags().StringVar(&adminInput.Phone, "phone", "", "contact phone")
	adminCreateCmd.Flags().StringVar(&adminInput.Password, "password", "", "password (at least 6 characters)")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("phone")
}
