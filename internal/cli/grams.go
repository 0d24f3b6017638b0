package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/grammable/internal/client"
)

func newGramsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grams",
		Short: "List, post, edit and delete grams",
		Long:  "Work with grams through the JSON API. Posting, editing and deleting need an API key (see 'grammable login').",
	}

	cmd.AddCommand(
		newGramsListCmd(),
		newGramsShowCmd(),
		newGramsPostCmd(),
		newGramsEditCmd(),
		newGramsDeleteCmd(),
	)

	return cmd
}

func newGramsListCmd() *cobra.Command {
	var opts client.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List grams, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGramsList(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of grams")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of grams to skip")
	cmd.Flags().Int64Var(&opts.UserID, "user", 0, "only grams by this user ID")

	return cmd
}

func runGramsList(ctx context.Context, opts client.ListOptions) error {
	grams, err := newAPIClient().ListGrams(ctx, opts)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(grams)
	}

	return printGramTable(grams)
}

func newGramsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a gram and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGramID(args[0])
			if err != nil {
				return err
			}

			resp, err := newAPIClient().GetGram(cmd.Context(), id)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(resp)
			}

			printGramSummary(&resp.Gram)
			fmt.Println()
			if len(resp.Comments) > 0 {
				fmt.Printf("Comments (%d):\n", len(resp.Comments))
			}
			printCommentList(resp.Comments)
			return nil
		},
	}
}

func newGramsPostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `post "message"`,
		Short: "Post a new gram",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")

			g, err := newAPIClient().CreateGram(cmd.Context(), message)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(g)
			}

			fmt.Printf("Gram #%d created.\n", g.ID)
			return nil
		},
	}
}

func newGramsEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `edit <id> "message"`,
		Short: "Replace the message of one of your grams",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGramID(args[0])
			if err != nil {
				return err
			}

			g, err := newAPIClient().UpdateGram(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(g)
			}

			fmt.Printf("Gram #%d updated.\n", g.ID)
			return nil
		},
	}
}

func newGramsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your grams and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGramID(args[0])
			if err != nil {
				return err
			}

			if err := newAPIClient().DeleteGram(cmd.Context(), id); err != nil {
				return err
			}

			if isJSON() {
				return printJSON(map[string]interface{}{
					"id":      id,
					"deleted": true,
				})
			}

			fmt.Printf("Gram #%d deleted.\n", id)
			return nil
		},
	}
}

func parseGramID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid gram ID: %s", s)
	}
	return id, nil
}
