package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamontuka/tuya-iot-core-reminder/internal/domain/hass"
	"github.com/mamontuka/tuya-iot-core-reminder/internal/domain/reminder"
)

// fakeClient records notification sends and can fail selected attempts.
type fakeClient struct {
	services   []hass.NotifyService
	listErr    error
	sendErrs   map[int]error // 1-based attempt index -> error
	sent       []string
	sentTarget []string
}

func (f *fakeClient) ListMobileNotifyServices(_ context.Context) ([]hass.NotifyService, error) {
	return f.services, f.listErr
}

func (f *fakeClient) SendNotification(_ context.Context, service, message string) error {
	attempt := len(f.sent) + 1
	f.sent = append(f.sent, message)
	f.sentTarget = append(f.sentTarget, service)
	if err, ok := f.sendErrs[attempt]; ok {
		return err
	}
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(client *fakeClient, expiryAt time.Time, pushCount int) *ReminderService {
	svc := NewReminderService(
		client,
		reminder.NewTracker(reminder.Thresholds),
		testLogger(),
		expiryAt,
		"notify.mobile_app_myphone",
		pushCount,
		0,
	)
	svc.listAttempts = 2
	svc.listBaseDelay = time.Millisecond
	return svc
}

func TestTick_FiresThresholdExactlyOnce(t *testing.T) {
	expiryAt := time.Date(2030, time.December, 31, 12, 0, 0, 0, time.UTC)
	now := expiryAt.AddDate(0, 0, -30)
	client := &fakeClient{}
	svc := newTestService(client, expiryAt, 1)

	svc.Tick(context.Background(), now)
	require.Equal(t, []string{"Tuya IOT expires in 30 days"}, client.sent)
	assert.Equal(t, []string{"notify.mobile_app_myphone"}, client.sentTarget)

	// Many more ticks within the same day: no duplicate sends.
	for i := 0; i < 10; i++ {
		svc.Tick(context.Background(), now.Add(time.Duration(i+1)*time.Minute))
	}
	assert.Len(t, client.sent, 1)
}

func TestTick_DispatchCycleSendsPushCountTimes(t *testing.T) {
	expiryAt := time.Date(2030, time.December, 31, 12, 0, 0, 0, time.UTC)
	client := &fakeClient{}
	svc := newTestService(client, expiryAt, 3)

	svc.Tick(context.Background(), expiryAt.AddDate(0, 0, -7))
	assert.Equal(t, []string{
		"Tuya IOT expires in 7 days",
		"Tuya IOT expires in 7 days",
		"Tuya IOT expires in 7 days",
	}, client.sent)
}

func TestTick_FailedSendDoesNotAbortRemainingAttempts(t *testing.T) {
	expiryAt := time.Date(2030, time.December, 31, 12, 0, 0, 0, time.UTC)
	client := &fakeClient{sendErrs: map[int]error{1: errors.New("connection refused")}}
	svc := newTestService(client, expiryAt, 3)

	svc.Tick(context.Background(), expiryAt.AddDate(0, 0, -1))
	assert.Len(t, client.sent, 3)
}

func TestTick_NonThresholdDaysSendNothing(t *testing.T) {
	expiryAt := time.Date(2030, time.December, 31, 12, 0, 0, 0, time.UTC)
	client := &fakeClient{}
	svc := newTestService(client, expiryAt, 1)

	svc.Tick(context.Background(), expiryAt.AddDate(0, 0, -5))
	assert.Empty(t, client.sent)
}

func TestTick_PastExpiryKeepsPollingWithoutSends(t *testing.T) {
	expiryAt := time.Date(2030, time.December, 31, 12, 0, 0, 0, time.UTC)
	client := &fakeClient{}
	svc := newTestService(client, expiryAt, 1)

	svc.Tick(context.Background(), expiryAt.AddDate(0, 0, 2))
	assert.Empty(t, client.sent)
}

func TestSendStartupStatus(t *testing.T) {
	expiryAt := time.Date(2030, time.December, 31, 12, 0, 0, 0, time.UTC)
	client := &fakeClient{}
	svc := newTestService(client, expiryAt, 1)

	svc.SendStartupStatus(context.Background(), expiryAt.AddDate(0, 0, -12))
	assert.Equal(t, []string{"Tuya IOT expires in 12 days"}, client.sent)
}

func TestAnnounceTargets_ListingFailureIsNonFatal(t *testing.T) {
	client := &fakeClient{listErr: errors.New("supervisor API returned status 500")}
	svc := newTestService(client, time.Now().Add(24*time.Hour), 1)

	// Must return (after its retries) without sending or panicking.
	svc.AnnounceTargets(context.Background())
	assert.Empty(t, client.sent)
}

func TestAnnounceTargets_LogsAndSendsNothing(t *testing.T) {
	client := &fakeClient{services: []hass.NotifyService{
		{ID: "notify.mobile_app_pixel", Name: "Pixel 8"},
	}}
	svc := newTestService(client, time.Now().Add(24*time.Hour), 1)

	svc.AnnounceTargets(context.Background())
	assert.Empty(t, client.sent)
}
