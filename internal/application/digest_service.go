package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/config"
	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/internal/domain/provider"
	repo "github.com/oksasatya/go-weather-digest/internal/domain/repository"
	"github.com/oksasatya/go-weather-digest/internal/observability"
	"github.com/oksasatya/go-weather-digest/pkg/mailer"
	tpl "github.com/oksasatya/go-weather-digest/pkg/mailer/templates"
)

// ErrDigestInProgress is returned when a run is requested while another is active.
var ErrDigestInProgress = errors.New("digest run already in progress")

// Archiver stores a copy of a rendered digest.
type Archiver interface {
	Put(ctx context.Context, userID int64, day time.Time, html string) (string, error)
}

// DigestReport summarises one dispatch run.
type DigestReport struct {
	Users        int       `json:"users"`
	Sent         int       `json:"sent"`
	Failed       int       `json:"failed"`
	CityFailures int       `json:"city_failures"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// DigestService composes and sends the daily weather digest to every
// confirmed user with at least one email-enabled city.
type DigestService struct {
	Relations repo.RelationRepository
	Weather   provider.WeatherProvider
	Mailer    mailer.Sender
	Archive   Archiver // optional
	Cfg       *config.Config
	Metrics   *observability.Metrics
	Logger    *logrus.Logger
	Clock     clockwork.Clock

	mu sync.Mutex
}

func NewDigestService(relations repo.RelationRepository, weather provider.WeatherProvider, m mailer.Sender, archive Archiver, cfg *config.Config, metrics *observability.Metrics, logger *logrus.Logger, clock clockwork.Clock) *DigestService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DigestService{
		Relations: relations,
		Weather:   weather,
		Mailer:    m,
		Archive:   archive,
		Cfg:       cfg,
		Metrics:   metrics,
		Logger:    logger,
		Clock:     clock,
	}
}

// RunOnce performs one dispatch pass. Per-city and per-user failures are
// counted in the report; only a failed recipient query fails the run.
// Runs do not overlap, and a started run ignores cancellation of ctx.
func (s *DigestService) RunOnce(ctx context.Context) (DigestReport, error) {
	ctx = context.WithoutCancel(ctx)
	if !s.mu.TryLock() {
		return DigestReport{}, ErrDigestInProgress
	}
	defer s.mu.Unlock()

	report := DigestReport{StartedAt: s.Clock.Now().UTC()}
	if s.Metrics != nil {
		s.Metrics.DigestRuns.Inc()
		s.Metrics.DigestRunning.Set(1)
		defer s.Metrics.DigestRunning.Set(0)
	}
	defer func() {
		if s.Metrics != nil {
			s.Metrics.DigestDuration.Observe(s.Clock.Since(report.StartedAt).Seconds())
		}
	}()

	recipients, err := s.Relations.ListDigestRecipients(ctx)
	if err != nil {
		return report, fmt.Errorf("list digest recipients: %w", err)
	}
	report.Users = len(recipients)

	for _, r := range recipients {
		cityFailures, err := s.sendOne(ctx, r, report.StartedAt)
		report.CityFailures += cityFailures
		if err != nil {
			report.Failed++
			s.countEmail("failed")
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("user_id", r.UserID).Error("digest delivery failed")
			}
			continue
		}
		report.Sent++
		s.countEmail("sent")
	}

	report.FinishedAt = s.Clock.Now().UTC()
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"users":         report.Users,
			"sent":          report.Sent,
			"failed":        report.Failed,
			"city_failures": report.CityFailures,
		}).Info("digest run finished")
	}
	return report, nil
}

func (s *DigestService) sendOne(ctx context.Context, r entity.DigestRecipient, day time.Time) (int, error) {
	lines, failures := s.collect(ctx, r.Cities)

	data := tpl.NewDigestData(s.Cfg, r.Username, r.Email, lines, tpl.WithTime(day))
	subject, text, html, err := tpl.Render(tpl.Digest, data)
	if err != nil {
		return failures, fmt.Errorf("render digest: %w", err)
	}
	if err := s.Mailer.Send(mailer.WithKind(ctx, tpl.Digest), r.Email, subject, text, html); err != nil {
		return failures, fmt.Errorf("send digest: %w", err)
	}

	if s.Archive != nil {
		uri, err := s.Archive.Put(ctx, r.UserID, day, html)
		if err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", r.UserID).Warn("archive digest failed")
		} else if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{"user_id": r.UserID, "uri": uri}).Debug("digest archived")
		}
	}
	return failures, nil
}

// collect fetches each city one at a time; a failure becomes a fallback line.
func (s *DigestService) collect(ctx context.Context, cities []string) ([]tpl.CityLine, int) {
	lines := make([]tpl.CityLine, 0, len(cities))
	failures := 0
	for _, city := range cities {
		w, err := s.Weather.Current(ctx, city)
		if err != nil {
			failures++
			s.countFetch("unavailable")
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("city", city).Warn("digest weather fetch failed")
			}
			lines = append(lines, tpl.CityLine{City: city})
			continue
		}
		s.countFetch("ok")
		lines = append(lines, tpl.CityLine{
			City:        city,
			Available:   true,
			Temperature: w.Temperature,
			Description: w.Description,
			Icon:        w.Icon,
		})
	}
	return lines, failures
}

func (s *DigestService) countEmail(outcome string) {
	if s.Metrics != nil {
		s.Metrics.DigestEmails.WithLabelValues(outcome).Inc()
	}
}

func (s *DigestService) countFetch(outcome string) {
	if s.Metrics != nil {
		s.Metrics.DigestCityFetches.WithLabelValues(outcome).Inc()
	}
}
