package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mamontuka/tuya-iot-core-reminder/internal/domain/expiry"
	"github.com/mamontuka/tuya-iot-core-reminder/internal/domain/hass"
	"github.com/mamontuka/tuya-iot-core-reminder/internal/domain/reminder"
	"github.com/mamontuka/tuya-iot-core-reminder/internal/infra/homeassistant"
)

// ReminderService drives the expiry reminder: it announces the available
// notification targets at startup, computes days remaining on every tick and
// runs a dispatch cycle when an unfired threshold is crossed.
type ReminderService struct {
	client       hass.Client
	tracker      *reminder.Tracker
	logger       *logrus.Logger
	expiryAt     time.Time
	notifyTarget string
	pushCount    int
	pushInterval time.Duration

	// Listing retry cadence: the Supervisor API may not be up yet when the
	// add-on starts.
	listAttempts  int
	listBaseDelay time.Duration
}

func NewReminderService(
	client hass.Client,
	tracker *reminder.Tracker,
	logger *logrus.Logger,
	expiryAt time.Time,
	notifyTarget string,
	pushCount int,
	pushIntervalMin int,
) *ReminderService {
	return &ReminderService{
		client:        client,
		tracker:       tracker,
		logger:        logger,
		expiryAt:      expiryAt,
		notifyTarget:  notifyTarget,
		pushCount:     pushCount,
		pushInterval:  time.Duration(pushIntervalMin) * time.Minute,
		listAttempts:  5,
		listBaseDelay: 5 * time.Second,
	}
}

// AnnounceTargets queries the Supervisor for the registered mobile notify
// services and logs them. Purely informational: every failure ends as a
// warning and the scheduler starts regardless.
func (s *ReminderService) AnnounceTargets(ctx context.Context) {
	var lastErr error
	for attempt := 1; attempt <= s.listAttempts; attempt++ {
		services, err := s.client.ListMobileNotifyServices(ctx)
		if err == nil {
			if len(services) == 0 {
				s.logger.Info("No mobile apps found.")
				return
			}
			s.logger.Info("Available mobile apps:")
			for _, svc := range services {
				if svc.Name != "" {
					s.logger.Infof("  %s (%s)", svc.ID, svc.Name)
				} else {
					s.logger.Infof("  %s", svc.ID)
				}
			}
			return
		}

		lastErr = err
		if attempt == s.listAttempts {
			break
		}
		delay := s.listBaseDelay * time.Duration(attempt)
		s.logger.Warnf("Attempt %d/%d: Supervisor API not ready (%v). Retrying in %s...",
			attempt, s.listAttempts, err, delay)
		if !sleepCtx(ctx, delay) {
			return
		}
	}
	s.logger.Warnf("Supervisor API unavailable after %d attempts (%v), skipping mobile app listing.",
		s.listAttempts, lastErr)
}

// SendStartupStatus pushes the current days-remaining message once, so a
// freshly (re)started add-on immediately reports where it stands.
func (s *ReminderService) SendStartupStatus(ctx context.Context, now time.Time) {
	days := expiry.DaysRemaining(s.expiryAt, now)
	s.logger.Infof("Tuya IOT Core expires in %d days", days)
	s.dispatch(ctx, reminder.ComposeMessage(days))
}

// Tick runs one scheduler iteration: compute days remaining against the
// deadline and fire a dispatch cycle if an unfired threshold matches exactly.
// Called from a single goroutine; a long dispatch cycle blocks further ticks
// by design.
func (s *ReminderService) Tick(ctx context.Context, now time.Time) {
	days := expiry.DaysRemaining(s.expiryAt, now)
	s.logger.Debugf("Tick: now=%s, days remaining=%d", now.Format(time.RFC3339), days)

	if days < 0 {
		s.logger.Info("Subscription has already expired.")
		return
	}

	threshold, ok := s.tracker.Claim(days)
	if !ok {
		return
	}

	s.logger.Infof("Threshold reached: %d days remaining. Dispatching notifications.", threshold)
	s.dispatch(ctx, reminder.ComposeMessage(threshold))
}

// dispatch runs one dispatch cycle: pushCount sends to the configured target,
// separated by the configured interval, no delay before the first. Each
// attempt is independent; a failed send never cancels the remaining ones.
func (s *ReminderService) dispatch(ctx context.Context, message string) {
	log := s.logger.WithField("dispatch_id", uuid.NewString())

	for i := 1; i <= s.pushCount; i++ {
		if err := s.client.SendNotification(ctx, s.notifyTarget, message); err != nil {
			var apiErr *homeassistant.APIError
			if errors.As(err, &apiErr) && apiErr.Unauthorized() {
				log.Warnf("Supervisor token rejected (401 Unauthorized) on send %d/%d.", i, s.pushCount)
			} else {
				log.Warnf("Failed to send notification (%d/%d): %v", i, s.pushCount, err)
			}
		} else {
			log.Infof("Notification sent successfully (%d/%d)", i, s.pushCount)
		}

		if i < s.pushCount && !sleepCtx(ctx, s.pushInterval) {
			log.Warnf("Dispatch cycle interrupted after %d/%d sends.", i, s.pushCount)
			return
		}
	}
}

// sleepCtx waits for d or until ctx is done. Returns false when interrupted.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
