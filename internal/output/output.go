package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/opsdesk/internal/models"
)

// UI provides colored output and respects verbose/dry-run modes.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("\u2713")
	warningPrefix = color.New(color.FgHiYellow).Sprint("\u26a0")
	errorPrefix   = color.New(color.FgHiRed).Sprint("\u2717")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  \u2192")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	boldRed       = color.New(color.FgHiRed, color.Bold).SprintFunc()
	faint         = color.New(color.Faint).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// StatusColor returns the status label colored by lifecycle stage.
func StatusColor(status models.Status) string {
	label := status.Label()
	switch status {
	case models.StatusOpen:
		return green(label)
	case models.StatusInProgress:
		return yellow(label)
	case models.StatusResolved:
		return cyan(label)
	case models.StatusClosed:
		return faint(label)
	default:
		return string(status)
	}
}

// SeverityColor returns the severity label colored by urgency.
func SeverityColor(severity models.Severity) string {
	label := severity.Label()
	switch severity {
	case models.SeverityCritical:
		return boldRed(label)
	case models.SeverityHigh:
		return red(label)
	case models.SeverityMedium:
		return yellow(label)
	case models.SeverityLow:
		return green(label)
	default:
		return string(severity)
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// IssueTable renders issues as a table with one row per issue.
func (u *UI) IssueTable(issues []*models.Issue) error {
	table := u.Table([]string{"ID", "Title", "Platform", "Status", "Severity", "Assignee", "Updated"})
	for _, i := range issues {
		assignee := i.AssigneeName()
		if assignee == "" {
			assignee = "-"
		}
		if err := table.Append([]string{
			i.ID,
			truncate(i.Title, 48),
			i.Platform.Label(),
			StatusColor(i.Status),
			SeverityColor(i.Severity),
			assignee,
			i.UpdatedAt.Local().Format("2006-01-02 15:04"),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// IssueDetail prints every field of an issue followed by its comments.
func (u *UI) IssueDetail(i *models.Issue) {
	assignee := i.AssigneeName()
	if assignee == "" {
		assignee = "Unassigned"
	}
	fmt.Fprintf(u.Out, "%s %s\n", Cyan("#"+i.ID), i.Title)
	fmt.Fprintf(u.Out, "  Platform:  %s\n", i.Platform.Label())
	fmt.Fprintf(u.Out, "  Status:    %s\n", StatusColor(i.Status))
	fmt.Fprintf(u.Out, "  Severity:  %s\n", SeverityColor(i.Severity))
	fmt.Fprintf(u.Out, "  Assignee:  %s\n", assignee)
	fmt.Fprintf(u.Out, "  Created:   %s\n", models.FormatTime(i.CreatedAt))
	fmt.Fprintf(u.Out, "  Updated:   %s\n", models.FormatTime(i.UpdatedAt))
	fmt.Fprintf(u.Out, "\n%s\n", i.Description)

	if len(i.Comments) == 0 {
		return
	}
	fmt.Fprintf(u.Out, "\nComments (%d):\n", len(i.Comments))
	for _, c := range i.Comments {
		fmt.Fprintf(u.Out, "  %s %s, %s\n", Cyan("#"+c.ID), c.Author, models.FormatTime(c.CreatedAt))
		for _, line := range strings.Split(c.Text, "\n") {
			fmt.Fprintf(u.Out, "    %s\n", line)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "\u2026"
}
