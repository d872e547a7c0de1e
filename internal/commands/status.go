package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opsradar-systems/opsradar/internal/config"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var region string
	var showAll bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show open risk insights and their severity breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(region, showAll)
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "Limit to one region")
	cmd.Flags().BoolVar(&showAll, "all", false, "List every open insight, not just the top 10")
	return cmd
}

func runStatus(region string, showAll bool) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	filter := types.InsightFilter{Status: types.StatusOpen, Region: region}

	summary, err := st.Summarize(ctx, filter)
	if err != nil {
		return fmt.Errorf("summarizing insights: %w", err)
	}

	printSummary(summary)

	if !showAll {
		filter.Limit = 10
	}
	insights, err := st.QueryInsights(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing insights: %w", err)
	}
	printInsights(insights, summary.Total)

	return nil
}

func printSummary(summary types.RiskSummary) {
	bold := color.New(color.Bold)
	_, _ = bold.Println("Open Risk Insights:")

	if summary.Total == 0 {
		color.Green("  No open insights.")
		return
	}

	fmt.Printf("  Total: %d\n", summary.Total)
	for _, level := range []types.RiskLevel{
		types.LevelCritical, types.LevelHigh, types.LevelMedium, types.LevelLow,
	} {
		n := summary.ByLevel[level]
		if n == 0 {
			continue
		}
		fmt.Printf("    %s %d\n", levelString(level), n)
	}

	riskTypes := make([]types.RiskType, 0, len(summary.ByType))
	for rt := range summary.ByType {
		riskTypes = append(riskTypes, rt)
	}
	sort.Slice(riskTypes, func(i, j int) bool { return riskTypes[i] < riskTypes[j] })
	fmt.Println()
	for _, rt := range riskTypes {
		fmt.Printf("    %-30s %d\n", rt, summary.ByType[rt])
	}
}

func printInsights(insights []types.RiskInsight, total int) {
	if len(insights) == 0 {
		return
	}

	bold := color.New(color.Bold)
	fmt.Println()
	_, _ = bold.Println("Highest scoring:")
	for _, insight := range insights {
		fmt.Printf("  %s %-11s %s\n",
			levelString(insight.RiskLevel), insight.EntityType, insight.Headline)
	}
	if total > len(insights) {
		fmt.Printf("  ... and %d more (use --all)\n", total-len(insights))
	}
}

func levelString(level types.RiskLevel) string {
	switch level {
	case types.LevelCritical:
		return color.RedString("%-8s", "CRITICAL")
	case types.LevelHigh:
		return color.RedString("%-8s", "HIGH")
	case types.LevelMedium:
		return color.YellowString("%-8s", "MEDIUM")
	default:
		return color.CyanString("%-8s", "LOW")
	}
}
