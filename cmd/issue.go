package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/opsdesk/internal/models"
	"github.com/joescharf/opsdesk/internal/output"
	"github.com/joescharf/opsdesk/internal/store"
)

var (
	issueTitle    string
	issueDesc     string
	issuePlatform string
	issueStatus   string
	issueSeverity string
	issueAssignee string
	commentText   string
	commentAuthor string
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage streaming platform issues",
	Long:  "List, create and update issues on a running opsdesk server.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun(cmd.Context())
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	Long:    "List issues in creation order. Filters are combined with AND.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun(cmd.Context())
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details and comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(cmd.Context(), args[0])
	},
}

var issueCreateCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"add"},
	Short:   "Create a new issue",
	Long:    "Create a new issue. It starts OPEN and unassigned.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueCreateRun(cmd.Context())
	},
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update <issue-id>",
	Short: "Update an issue",
	Long:  "Update an issue. Only the flags you pass are changed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		upd, err := issueUpdateFromFlags(cmd)
		if err != nil {
			return err
		}
		return issueUpdateRun(cmd.Context(), args[0], upd)
	},
}

var issueCloseCmd = &cobra.Command{
	Use:   "close <issue-id>",
	Short: "Close an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		closed := models.StatusClosed
		return issueUpdateRun(cmd.Context(), args[0], models.IssueUpdate{Status: &closed})
	},
}

var issueCommentCmd = &cobra.Command{
	Use:   "comment <issue-id>",
	Short: "Add a comment to an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueCommentRun(cmd.Context(), args[0])
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:     "delete <issue-id>",
	Aliases: []string{"rm"},
	Short:   "Delete an issue",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDeleteRun(cmd.Context(), args[0])
	},
}

func init() {
	issueListCmd.Flags().StringVar(&issuePlatform, "platform", "", "Filter by platform: disney_plus, espn_plus, hulu, star_plus")
	issueListCmd.Flags().StringVar(&issueStatus, "status", "", "Filter by status: open, in_progress, resolved, closed")
	issueListCmd.Flags().StringVar(&issueSeverity, "severity", "", "Filter by severity: low, medium, high, critical")
	issueListCmd.Flags().StringVar(&issueAssignee, "assignee", "", "Filter by assignee (case-insensitive substring)")

	issueCreateCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueCreateCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description (required)")
	issueCreateCmd.Flags().StringVar(&issuePlatform, "platform", "", "Platform (required)")
	issueCreateCmd.Flags().StringVar(&issueSeverity, "severity", "", "Severity (required)")
	_ = issueCreateCmd.MarkFlagRequired("title")
	_ = issueCreateCmd.MarkFlagRequired("desc")
	_ = issueCreateCmd.MarkFlagRequired("platform")
	_ = issueCreateCmd.MarkFlagRequired("severity")

	issueUpdateCmd.Flags().StringVar(&issueTitle, "title", "", "New title")
	issueUpdateCmd.Flags().StringVar(&issueDesc, "desc", "", "New description")
	issueUpdateCmd.Flags().StringVar(&issuePlatform, "platform", "", "New platform")
	issueUpdateCmd.Flags().StringVar(&issueStatus, "status", "", "New status")
	issueUpdateCmd.Flags().StringVar(&issueSeverity, "severity", "", "New severity")
	issueUpdateCmd.Flags().StringVar(&issueAssignee, "assignee", "", "New assignee")

	issueCommentCmd.Flags().StringVar(&commentText, "text", "", "Comment text (required)")
	issueCommentCmd.Flags().StringVar(&commentAuthor, "author", "", "Comment author (required)")
	_ = issueCommentCmd.MarkFlagRequired("text")
	_ = issueCommentCmd.MarkFlagRequired("author")

	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueCreateCmd)
	issueCmd.AddCommand(issueUpdateCmd)
	issueCmd.AddCommand(issueCloseCmd)
	issueCmd.AddCommand(issueCommentCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	rootCmd.AddCommand(issueCmd)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// issueListFilter parses the list flags.
func issueListFilter() (store.IssueListFilter, error) {
	filter := store.IssueListFilter{Assignee: issueAssignee}
	var err error
	if issuePlatform != "" {
		if filter.Platform, err = models.ParsePlatform(issuePlatform); err != nil {
			return filter, err
		}
	}
	if issueStatus != "" {
		if filter.Status, err = models.ParseStatus(issueStatus); err != nil {
			return filter, err
		}
	}
	if issueSeverity != "" {
		if filter.Severity, err = models.ParseSeverity(issueSeverity); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

func issueListRun(ctx context.Context) error {
	filter, err := issueListFilter()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	issues, err := s.ListIssues(orBackground(ctx), filter)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		ui.Info("No issues found.")
		return nil
	}
	return ui.IssueTable(issues)
}

func issueShowRun(ctx context.Context, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	issue, err := s.GetIssue(orBackground(ctx), id)
	if err != nil {
		return err
	}
	ui.IssueDetail(issue)
	return nil
}

func issueCreateRun(ctx context.Context) error {
	in := models.NewIssue{Title: issueTitle, Description: issueDesc}
	var err error
	if in.Platform, err = models.ParsePlatform(issuePlatform); err != nil {
		return err
	}
	if in.Severity, err = models.ParseSeverity(issueSeverity); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create issue: %s [%s/%s]", in.Title, in.Platform.Label(), in.Severity.Label())
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	issue, err := s.CreateIssue(orBackground(ctx), in)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	ui.Success("Created issue %s: %s", output.Cyan("#"+issue.ID), issue.Title)
	return nil
}

// issueUpdateFromFlags builds a partial update from the flags the user
// actually passed, so --assignee "" clears to an empty name.
func issueUpdateFromFlags(cmd *cobra.Command) (models.IssueUpdate, error) {
	var upd models.IssueUpdate
	flags := cmd.Flags()

	if flags.Changed("title") {
		upd.Title = &issueTitle
	}
	if flags.Changed("desc") {
		upd.Description = &issueDesc
	}
	if flags.Changed("assignee") {
		upd.Assignee = &issueAssignee
	}
	if flags.Changed("platform") {
		p, err := models.ParsePlatform(issuePlatform)
		if err != nil {
			return upd, err
		}
		upd.Platform = &p
	}
	if flags.Changed("status") {
		st, err := models.ParseStatus(issueStatus)
		if err != nil {
			return upd, err
		}
		upd.Status = &st
	}
	if flags.Changed("severity") {
		sv, err := models.ParseSeverity(issueSeverity)
		if err != nil {
			return upd, err
		}
		upd.Severity = &sv
	}

	if upd.IsEmpty() {
		return upd, fmt.Errorf("no updates specified (use --title, --desc, --platform, --status, --severity, or --assignee)")
	}
	return upd, nil
}

func issueUpdateRun(ctx context.Context, id string, upd models.IssueUpdate) error {
	if dryRun {
		ui.DryRunMsg("Would update issue #%s", id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	issue, err := s.UpdateIssue(orBackground(ctx), id, upd)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}

	ui.Success("Updated issue %s: %s", output.Cyan("#"+issue.ID), issue.Title)
	ui.VerboseLog("Status %s, severity %s, assignee %q",
		issue.Status.Label(), issue.Severity.Label(), issue.AssigneeName())
	return nil
}

func issueCommentRun(ctx context.Context, id string) error {
	in := models.NewComment{Text: commentText, Author: commentAuthor}
	if err := in.Validate(); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would comment on issue #%s as %s", id, in.Author)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	issue, err := s.AddComment(orBackground(ctx), id, in)
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}

	ui.Success("Added comment to issue %s (%d comments)", output.Cyan("#"+issue.ID), len(issue.Comments))
	return nil
}

func issueDeleteRun(ctx context.Context, id string) error {
	if dryRun {
		ui.DryRunMsg("Would delete issue #%s", id)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ok, err := s.DeleteIssue(orBackground(ctx), id)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if !ok {
		ui.Warning("Issue #%s not found; nothing deleted", id)
		return nil
	}

	ui.Success("Deleted issue %s", output.Cyan("#"+id))
	return nil
}
