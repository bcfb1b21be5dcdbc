package main

import (
	"fmt"
	"os"

	"statusgen/internal/pipeline"
	"statusgen/internal/tracker"

	"github.com/spf13/cobra"
)

var (
	reportComponents  []string
	reportWhiteboards []string
	reportAssignees   []string
	reportMetaBugs    []int
	reportIDs         []int
	reportDays        int
	reportModel       string
	reportFormat      string
	reportVoice       string
	reportAudience    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a shipped-work report",
	Long: `Generate a report of work items that shipped in the trailing window.

Candidates are discovered from the configured trackers by the given filters,
qualified by their own change history, and summarized. Alternatively pass
--ids to skip discovery and report on an explicit item list.

Requires BUGZILLA_API_KEY and OPENAI_API_KEY in the environment. Set
GITHUB_TOKEN to also collect from GitHub and attach merged PR titles.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringArrayVarP(&reportComponents, "component", "c", nil,
		"Component filter (repeatable)")
	reportCmd.Flags().StringArrayVarP(&reportWhiteboards, "whiteboard", "w", nil,
		"Whiteboard/label filter (repeatable)")
	reportCmd.Flags().StringArrayVarP(&reportAssignees, "assignee", "a", nil,
		"Assignee filter (repeatable)")
	reportCmd.Flags().IntSliceVar(&reportMetaBugs, "meta", nil,
		"Meta bug to expand into its children (repeatable)")
	reportCmd.Flags().IntSliceVar(&reportIDs, "ids", nil,
		"Explicit item ids, skipping discovery")
	reportCmd.Flags().IntVar(&reportDays, "days", 0,
		"Trailing window in days (default from config)")
	reportCmd.Flags().StringVar(&reportModel, "model", "",
		"Summarizer model (default from config)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "",
		"Output format: md or html (default from config)")
	reportCmd.Flags().StringVar(&reportVoice, "voice", "",
		"Summary voice preset")
	reportCmd.Flags().StringVar(&reportAudience, "audience", "",
		"Summary audience preset")
}

func runReport(cmd *cobra.Command, args []string) error {
	filters := tracker.FilterSet{
		Components:  reportComponents,
		Whiteboards: reportWhiteboards,
		Assignees:   reportAssignees,
		MetaBugs:    reportMetaBugs,
	}
	if filters.Empty() && len(reportIDs) == 0 {
		return fmt.Errorf("at least one filter (--component, --whiteboard, --assignee, --meta) or --ids is required")
	}
	if reportFormat != "" && reportFormat != "md" && reportFormat != "html" {
		return fmt.Errorf("format must be md or html")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	// Fail fast before any network call.
	if err := a.creds.RequireTracker(); err != nil {
		return err
	}
	if err := a.creds.RequireSummarizer(); err != nil {
		return err
	}

	days := reportDays
	if days <= 0 {
		days = a.cfg.Window.Days
	}
	model := reportModel
	if model == "" {
		model = a.cfg.Report.Model
	}
	format := reportFormat
	if format == "" {
		format = a.cfg.Report.Format
	}

	params := pipeline.Params{
		Filters:  filters,
		IDs:      reportIDs,
		Days:     days,
		Model:    model,
		Voice:    reportVoice,
		Audience: reportAudience,
		Format:   format,
	}
	deps := a.pipelineDeps()

	rc := pipeline.NewContext(params, deps, &consoleNotifier{out: os.Stderr})
	steps := pipeline.BuildRecipe(params, deps)
	if _, err := pipeline.Run(cmd.Context(), steps, rc); err != nil {
		return err
	}

	if format == "html" {
		fmt.Println(rc.HTML)
	} else {
		fmt.Println(rc.Output)
	}
	return nil
}

// consoleNotifier prints pipeline progress to stderr, keeping stdout clean
// for the report itself.
type consoleNotifier struct {
	out *os.File
}

func (n *consoleNotifier) PhaseStart(label string) {
	fmt.Fprintf(n.out, "==> %s\n", label)
}

func (n *consoleNotifier) PhaseEnd(label string, failed bool) {
	if failed {
		fmt.Fprintf(n.out, "==> %s: failed\n", label)
	}
}

func (n *consoleNotifier) Progress(label string, current, total int) {
	if total > 0 && (current == total || current%10 == 0) {
		fmt.Fprintf(n.out, "    %s: %d/%d\n", label, current, total)
	}
}

func (n *consoleNotifier) Info(msg string) {
	fmt.Fprintf(n.out, "%s\n", msg)
}

func (n *consoleNotifier) Warn(msg string) {
	fmt.Fprintf(n.out, "warning: %s\n", msg)
}
