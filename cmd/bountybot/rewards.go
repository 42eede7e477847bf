package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	githubadapter "github.com/ericfisherdev/bountybot/internal/adapter/driven/github"
	"github.com/ericfisherdev/bountybot/internal/adapter/driven/metrics"
	sqliteadapter "github.com/ericfisherdev/bountybot/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/bountybot/internal/application"
	"github.com/ericfisherdev/bountybot/internal/config"
	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

var rewardsCmd = &cobra.Command{
	Use:   "rewards <owner/repo> <issue>",
	Short: "Preview the conversation rewards for an issue without paying",
	Long: `Compute the comment, issue-creation and review rewards for an issue as
if it had just been closed. Nothing is signed, posted or stored.

Examples:
  bountybot rewards acme/widgets 42`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[1])
		if err != nil || number <= 0 {
			return fmt.Errorf("invalid issue number %q", args[1])
		}
		return runRewards(cmd, args[0], number)
	},
}

func init() {
	rootCmd.AddCommand(rewardsCmd)
}

func runRewards(cmd *cobra.Command, repo string, number int) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	baseSettings, err := config.LoadBotSettings(cfg.SettingsPath)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ghClient := githubadapter.NewClient(cfg.GitHubToken)
	settings, err := application.NewSettingsService(baseSettings, ghClient, cfg.RepoSettingsPath, slog.Default()).Load(ctx, repo)
	if err != nil {
		return err
	}

	issue, err := ghClient.FetchIssue(ctx, repo, number)
	if err != nil {
		return err
	}

	// A nil fallback store keeps the preview free of side effects.
	attribution := application.NewAttributionService(
		ghClient,
		sqliteadapter.NewWalletRepo(db),
		sqliteadapter.NewBotAccountRepo(db),
		nil,
		metrics.Nop{},
		slog.Default(),
	)
	ev := &application.EventContext{
		Kind:     application.EventIssuesClosed,
		Repo:     repo,
		Issue:    *issue,
		Settings: settings,
	}

	passes := []func() (model.RewardsResult, error){
		func() (model.RewardsResult, error) { return attribution.IssueComments(ctx, ev) },
		func() (model.RewardsResult, error) { return attribution.IssueCreation(ctx, ev) },
		func() (model.RewardsResult, error) { return attribution.ReviewRewards(ctx, ev) },
	}
	results := make([]model.RewardsResult, 0, len(passes))
	for _, pass := range passes {
		result, err := pass()
		if err != nil {
			return err
		}
		results = append(results, result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s#%d %s\n", repo, number, issue.Title)
	if !settings.IncentiveMode {
		fmt.Fprintln(out, color.YellowString("Incentive mode is off for this repository; these rewards would not be paid."))
	}
	printRewards(out, results)
	return nil
}

// printRewards writes one block per reward pass: payable candidates, then
// fallbacks owed to users without a wallet.
func printRewards(w io.Writer, results []model.RewardsResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, r := range results {
		fmt.Fprintf(w, "\n%s\n", cyan(r.Title))

		if r.Skip != "" {
			fmt.Fprintf(w, "  %s\n", gray(r.Skip))
			continue
		}
		if len(r.Candidates) == 0 && len(r.Fallbacks) == 0 {
			fmt.Fprintf(w, "  %s\n", gray("No rewards."))
			continue
		}

		for _, c := range r.Candidates {
			fmt.Fprintf(w, "  %-20s %s  %s\n", "@"+c.Username, green(c.Amount.String()), model.ShortenAddress(c.Account))
			for _, line := range breakdownLines(c.Breakdown) {
				fmt.Fprintf(w, "      %s\n", gray(line))
			}
		}
		for _, f := range r.Fallbacks {
			fmt.Fprintf(w, "  %-20s %s  %s\n", "@"+f.Username, yellow(f.Amount.String()), yellow("no wallet"))
		}
	}
}

func breakdownLines(b model.RewardBreakdown) []string {
	keys := make([]string, 0, len(b.ByCategory))
	for k := range b.ByCategory {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		line := b.ByCategory[k]
		name := "<" + k + ">"
		if k == model.TextCategory {
			name = "words"
		}
		lines = append(lines, fmt.Sprintf("%s × %d @ %s = %s", name, line.Count, line.Unit.String(), line.Total().String()))
	}
	return lines
}
