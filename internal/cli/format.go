package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/evcraddock/grammable/internal/auth"
	"github.com/evcraddock/grammable/internal/comment"
	"github.com/evcraddock/grammable/internal/gram"
)

const timeLayout = "2006-01-02 15:04"

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printGramSummary prints a single gram in text format.
func printGramSummary(g *gram.Gram) {
	fmt.Printf("Gram #%d\n", g.ID)
	fmt.Printf("  Author:   %s\n", orAnonymous(g.Author))
	fmt.Printf("  Posted:   %s\n", g.CreatedAt.Local().Format(timeLayout))
	if edited(g.CreatedAt, g.UpdatedAt) {
		fmt.Printf("  Edited:   %s\n", g.UpdatedAt.Local().Format(timeLayout))
	}
	fmt.Printf("  Message:  %s\n", g.Message)
}

// printGramTable prints a list of grams as a formatted table.
func printGramTable(grams []*gram.Gram) error {
	if len(grams) == 0 {
		fmt.Println("No grams yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tAUTHOR\tPOSTED\tMESSAGE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t------\t------\t-------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, g := range grams {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			g.ID, truncate(orAnonymous(g.Author), 24), g.CreatedAt.Local().Format(timeLayout), truncate(oneLine(g.Message), 50)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Printf("\nTotal: %d grams\n", len(grams))
	return nil
}

// printCommentList prints comments in text format.
func printCommentList(comments []*comment.Comment) {
	if len(comments) == 0 {
		fmt.Println("No comments.")
		return
	}

	for _, c := range comments {
		fmt.Printf("[%s] #%d (%s)\n  %s\n\n",
			c.CreatedAt.Local().Format(timeLayout), c.ID, orAnonymous(c.Author), c.Body)
	}
}

// printCommentSingle prints a single comment in text format.
func printCommentSingle(c *comment.Comment) {
	fmt.Printf("Comment #%d added to gram #%d.\n  %s\n", c.ID, c.GramID, c.Body)
}

// printUserTable prints accounts as a formatted table.
func printUserTable(users []*auth.User) error {
	if len(users) == 0 {
		fmt.Println("No users.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tEMAIL\tNAME"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, u := range users {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Email, u.Name); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

func orAnonymous(author string) string {
	if author == "" {
		return "anonymous"
	}
	return author
}

// edited reports whether a record changed noticeably after creation.
func edited(created, updated time.Time) bool {
	return updated.Sub(created) > time.Second
}

// oneLine collapses runs of whitespace, including newlines, into single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
