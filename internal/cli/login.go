package cli

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/grammable/internal/auth"
)

func newLoginCmd() *cobra.Command {
	var server, key string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key",
		Long:  "Opens the settings page in a browser so you can create an API key, then stores it for CLI access. Pass --key to skip the browser.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(server, key)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or http://localhost:8080)")
	cmd.Flags().StringVar(&key, "key", "", "API key to store")

	return cmd
}

func runLogin(serverFlag, key string) error {
	if key == "" {
		var err error
		key, err = promptForKey(serverFlag)
		if err != nil {
			return err
		}
	}

	key = strings.TrimSpace(key)
	if err := validateAPIKey(key); err != nil {
		return err
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.APIKey = key
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println("✓ API key saved. You're logged in!")
	return nil
}

func promptForKey(serverFlag string) (string, error) {
	serverURL := serverFlag
	if serverURL == "" {
		serverURL = getServerURL()
	}

	settingsURL := strings.TrimRight(serverURL, "/") + "/settings"

	fmt.Println("Opening browser to create an API key...")
	fmt.Printf("If the browser doesn't open, visit: %s\n\n", settingsURL)

	if err := openBrowser(settingsURL); err != nil {
		fmt.Fprintf(os.Stderr, "Could not open browser: %v\n", err)
	}

	fmt.Print("Paste your API key: ")
	key, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return key, nil
}

// validateAPIKey checks that the key is non-empty and has the expected prefix.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("no API key provided")
	}
	if !auth.HasKeyPrefix(key) {
		return fmt.Errorf("invalid API key format (should start with gr_)")
	}
	return nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
