package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/opsdesk/internal/models"
	"github.com/joescharf/opsdesk/internal/store"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a snapshot of every issue as YAML or JSON",
	Long: `Fetch every issue from the running server and write it as YAML or JSON.

The snapshot is for reporting and hand-off; the server never reads it back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun(cmd.Context())
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "yaml", "Output format: yaml or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

// snapshot is the exported document.
type snapshot struct {
	ExportedAt time.Time       `json:"exportedAt" yaml:"exportedAt"`
	Count      int             `json:"count" yaml:"count"`
	Issues     []*models.Issue `json:"issues" yaml:"issues"`
}

func writeSnapshot(w io.Writer, format string, snap snapshot) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

func exportRun(ctx context.Context) error {
	switch strings.ToLower(exportFormat) {
	case "yaml", "yml", "json":
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", exportFormat)
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	issues, err := s.ListIssues(orBackground(ctx), store.IssueListFilter{})
	if err != nil {
		return err
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	snap := snapshot{
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Count:      len(issues),
		Issues:     issues,
	}

	if exportOutput == "" {
		return writeSnapshot(ui.Out, exportFormat, snap)
	}

	if dryRun {
		ui.DryRunMsg("Would write %d issues to %s", len(issues), exportOutput)
		return nil
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOutput, err)
	}
	if err := writeSnapshot(f, exportFormat, snap); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	ui.Success("Exported %d issues to %s", len(issues), exportOutput)
	return nil
}
