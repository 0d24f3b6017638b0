package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored API key",
		Long:  "Removes the API key from the config file. The key stays valid on the server until you delete it in settings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout()
		},
	}
}

func runLogout() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	hadKey := cfg.APIKey != ""
	if hadKey {
		cfg.APIKey = ""
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
	}

	if isJSON() {
		return printJSON(map[string]bool{"logged_out": hadKey})
	}
	if !hadKey {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Printf("✓ Logged out. Revoke the key at %s/settings if it is no longer needed.\n", getServerURL())
	return nil
}
