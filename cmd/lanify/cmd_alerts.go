package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lanify/monitor/internal/alert"
	"github.com/lanify/monitor/internal/api"
	"github.com/lanify/monitor/internal/theme"
)

func apiClient(opts *options) (*api.Client, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return api.New(cfg.Client.Endpoint, cfg.Client.Token), nil
}

func newAlertsCmd(opts *options) *cobra.Command {
	var (
		vehicle    string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List stored lane departure alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(opts)
			if err != nil {
				return err
			}
			recs, err := c.ListAlerts(cmd.Context(), vehicle)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(recs)
			}
			if len(recs) == 0 {
				fmt.Println("no alerts")
				return nil
			}
			for _, r := range recs {
				sev := lipgloss.NewStyle().Foreground(theme.SeverityColor(string(r.Severity))).Render(fmt.Sprintf("%-8s", r.Severity))
				fmt.Printf("%s  %-12s  %5.2f m  %-14s  %s\n",
					sev, r.VehicleID, r.LaneDeviation, humanize.Time(r.Timestamp), r.Message())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "filter by vehicle id (substring)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func newReportCmd(opts *options) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "report [vehicle-id]",
		Short: "Show safety reports for one vehicle or the whole fleet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(opts)
			if err != nil {
				return err
			}
			var reports []alert.SafetyReport
			if len(args) == 1 {
				r, err := c.SafetyReport(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				reports = append(reports, *r)
			} else {
				reports, err = c.SafetyReports(cmd.Context())
				if err != nil {
					return err
				}
			}
			if jsonOutput {
				return printJSON(reports)
			}
			for _, r := range reports {
				fmt.Println(formatReport(r))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func formatReport(r alert.SafetyReport) string {
	sevs := make([]string, 0, len(r.AlertsSummary))
	for sev, n := range r.AlertsSummary {
		sevs = append(sevs, fmt.Sprintf("%s=%d", sev, n))
	}
	sort.Strings(sevs)

	color := theme.ColorHealthy
	switch {
	case r.SafetyScore < 50:
		color = theme.ColorDanger
	case r.SafetyScore < 80:
		color = theme.ColorWarning
	}
	score := lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf("%3.0f", r.SafetyScore))

	return fmt.Sprintf("%s  %-12s  %s alerts (%s)\n     %s",
		score, r.VehicleID, humanize.Comma(int64(r.TotalAlerts)), strings.Join(sevs, " "),
		theme.StyleDimmed.Render(r.Recommendations))
}

func newSendCmd(opts *options) *cobra.Command {
	rec := alert.Record{}
	var severity string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Post a lane departure alert to the feed server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(opts)
			if err != nil {
				return err
			}
			rec.Severity = alert.Severity(severity)
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			out, err := c.CreateAlert(ctx, &rec)
			if err != nil {
				return err
			}
			fmt.Printf("created %s for %s\n", out.ID, out.VehicleID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&rec.DashcamID, "dashcam", "cam-cli", "dashcam id")
	f.StringVar(&rec.VehicleID, "vehicle", "", "vehicle id")
	f.StringVar(&severity, "severity", "medium", "low, medium, high or critical")
	f.Float64Var(&rec.LaneDeviation, "deviation", 0.8, "lane deviation in metres")
	f.StringVar(&rec.Description, "message", "", "alert text (default: "+alert.DefaultMessage+")")
	cmd.MarkFlagRequired("vehicle")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
