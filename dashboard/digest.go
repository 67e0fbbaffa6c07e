package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tywin1104/mc-dashboard/aggregate"
	"github.com/tywin1104/mc-dashboard/utils"
)

const (
	digestTemplate = "digest.html"
	digestSubject  = "Whitelist requests digest"
)

// ErrNoMailer is returned by SendDigest when no mailer is configured
var ErrNoMailer = errors.New("no mailer configured")

type digest struct {
	GeneratedAt       time.Time
	Stats             aggregate.Summary
	Daily             []aggregate.DayCount
	OvertimeLinks     []string
	OvertimeThreshold string
}

// SendDigest emails the current report to every op
func (s *Service) SendDigest(ctx context.Context) error {
	if s.mailer == nil {
		return ErrNoMailer
	}
	settings := s.Settings()
	report, err := aggregate.NewReport(s.store.Current().Requests(), aggregate.Options{
		WindowDays:        settings.WindowDays,
		Reference:         s.now(),
		OvertimeThreshold: settings.OvertimeThreshold,
	})
	if err != nil {
		return err
	}
	threshold := settings.OvertimeThreshold
	if threshold <= 0 {
		threshold = aggregate.DefaultOvertimeThreshold
	}
	data := digest{
		GeneratedAt:       report.GeneratedAt,
		Stats:             report.Stats,
		Daily:             report.Daily,
		OvertimeThreshold: threshold.String(),
	}
	if settings.StatusPageURL != "" {
		for _, id := range report.Overtime.OvertimeIDs {
			link, err := utils.StatusLink(settings.StatusPageURL, id, settings.PassPhrase)
			if err != nil {
				s.logger.WithFields(logrus.Fields{
					"err": err.Error(),
					"ID":  id,
				}).Error("Unable to build status link")
				continue
			}
			data.OvertimeLinks = append(data.OvertimeLinks, link)
		}
	}

	failed := 0
	for _, op := range settings.Ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.mailer.Send(digestTemplate, data, digestSubject, op); err != nil {
			failed++
			s.logger.WithFields(logrus.Fields{
				"err":       err.Error(),
				"recipient": op,
			}).Error("Unable to send digest")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"recipient": op,
		}).Info("Digest sent")
	}
	if failed > 0 {
		return fmt.Errorf("digest failed for %d of %d recipients", failed, len(settings.Ops))
	}
	return nil
}
