package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/grammable/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks if the stored API key is valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	serverURL := getServerURL()
	apiKey := getAPIKey()

	fmt.Printf("Server:  %s\n", serverURL)

	if apiKey == "" {
		fmt.Println("API Key: not configured")
		fmt.Println("\nRun 'grammable login' to authenticate.")
		return nil
	}

	prefix := apiKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	fmt.Printf("API Key: %s…\n", prefix)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.New(serverURL, apiKey).ListKeys(ctx)

	var apiErr *client.APIError
	switch {
	case err == nil:
		fmt.Println("Status:  ✓ connected and authenticated")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		fmt.Println("Status:  ✗ invalid API key")
		fmt.Println("\nRun 'grammable login' to re-authenticate.")
	case errors.As(err, &apiErr):
		fmt.Printf("Status:  ✗ unexpected response (%d)\n", apiErr.StatusCode)
	default:
		fmt.Printf("Status:  ✗ cannot reach server (%v)\n", err)
	}

	return nil
}
