package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tywin1104/mc-dashboard/aggregate"
	"github.com/tywin1104/mc-dashboard/dashboard"
	"github.com/tywin1104/mc-dashboard/snapshot"

	log "github.com/sirupsen/logrus"
)

var (
	reportDays int
	reportDate string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch the requests once and print the daily series and summary as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		var reference time.Time
		if reportDate != "" {
			if reference, err = time.ParseInLocation(aggregate.DateLayout, reportDate, time.Local); err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
		}
		days := c.WindowDays
		if cmd.Flags().Changed("days") {
			days = reportDays
		}

		ctx := cmd.Context()
		source, closeSource, err := newSource(ctx, c)
		if err != nil {
			return err
		}
		defer closeSource()

		svc := dashboard.NewService(source, snapshot.NewStore(), nil, nil, nil,
			dashboard.SettingsFromConfig(c), log.WithField("origin", "dashboard"))
		if err := svc.Refresh(ctx, dashboard.TriggerManual); err != nil {
			return err
		}
		daily, err := svc.Daily(days, reference)
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"daily": daily,
			"stats": svc.Summary(),
		})
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportDays, "days", aggregate.DefaultWindowDays, "number of days in the series")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "last day of the series as YYYY-MM-DD, today when empty")
}
