package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `comment <gram-id> "text"`,
		Short: "Comment on a gram",
		Long:  "Add a text comment to a gram. Needs an API key.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runComment,
	}
}

func runComment(cmd *cobra.Command, args []string) error {
	id, err := parseGramID(args[0])
	if err != nil {
		return err
	}

	text := strings.Join(args[1:], " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("comment text is required")
	}

	comm, err := newAPIClient().AddComment(cmd.Context(), id, text)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(comm)
	}

	printCommentSingle(comm)
	return nil
}

func newCommentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comments <gram-id>",
		Short: "List comments on a gram",
		Long:  "List all comments on a gram, oldest first.",
		Args:  cobra.ExactArgs(1),
		RunE:  runComments,
	}
}

func runComments(cmd *cobra.Command, args []string) error {
	id, err := parseGramID(args[0])
	if err != nil {
		return err
	}

	comments, err := newAPIClient().ListComments(cmd.Context(), id)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(comments)
	}

	fmt.Printf("Comments on gram #%d:\n\n", id)
	printCommentList(comments)
	return nil
}
