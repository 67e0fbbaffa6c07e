package main

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tywin1104/mc-dashboard/dashboard"
	"github.com/tywin1104/mc-dashboard/snapshot"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Fetch the requests once and email the digest to every op",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		m := newMailer(c)
		if m == nil {
			return errors.New("digest needs ops and a valid SMTP config")
		}

		ctx := cmd.Context()
		source, closeSource, err := newSource(ctx, c)
		if err != nil {
			return err
		}
		defer closeSource()

		svc := dashboard.NewService(source, snapshot.NewStore(), nil, nil, m,
			dashboard.SettingsFromConfig(c), log.WithField("origin", "dashboard"))
		if err := svc.Refresh(ctx, dashboard.TriggerManual); err != nil {
			return err
		}
		return svc.SendDigest(ctx)
	},
}
