package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-weather-digest/internal/domain/provider"
	"github.com/oksasatya/go-weather-digest/internal/observability"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
)

type digestFixture struct {
	store   *memStore
	weather *fakeWeather
	mail    *recordingMailer
	archive *fakeArchive
	metrics *observability.Metrics
	svc     *DigestService
}

func newDigestFixture() *digestFixture {
	store := newMemStore()
	fw := &fakeWeather{
		temps:   map[string]float64{"Paris": 18.46, "Oslo": -2},
		missing: map[string]error{"Nowhere": fmt.Errorf("%w: status 502", provider.ErrUpstreamUnavailable)},
	}
	mail := &recordingMailer{fail: map[string]error{}}
	arch := &fakeArchive{}
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))
	svc := NewDigestService(memRelations{store}, fw, mail, arch, nil, metrics, helpers.NewNopLogger(), clock)
	return &digestFixture{store: store, weather: fw, mail: mail, archive: arch, metrics: metrics, svc: svc}
}

func (f *digestFixture) subscribe(t *testing.T, userID int64, cities ...string) {
	t.Helper()
	for _, name := range cities {
		c, _, err := memCities{f.store}.GetOrCreate(context.Background(), name)
		require.NoError(t, err)
		_, err = memRelations{f.store}.AddSubscription(context.Background(), userID, c.ID)
		require.NoError(t, err)
	}
}

func TestRunOnce_FailedCityBecomesFallbackLine(t *testing.T) {
	f := newDigestFixture()
	u := f.store.addUser("alice", "alice@example.com", true)
	f.subscribe(t, u.ID, "Paris", "Nowhere")

	report, err := f.svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Users)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.CityFailures)

	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Your daily weather digest", msg.Subject)
	assert.Contains(t, msg.HTML, "<strong>Paris</strong>: 18.5°C, clear sky")
	assert.Contains(t, msg.HTML, "Couldn't retrieve weather data for Nowhere.")
	assert.Contains(t, msg.Text, "- Couldn't retrieve weather data for Nowhere.")

	assert.ElementsMatch(t, []string{"Paris", "Nowhere"}, f.weather.calls, "one fetch per city")
	assert.Equal(t, msg.HTML, f.archive.puts[u.ID])
}

func TestRunOnce_SkipsUnconfirmedAndEmpty(t *testing.T) {
	f := newDigestFixture()
	confirmed := f.store.addUser("alice", "alice@example.com", true)
	unconfirmed := f.store.addUser("bob", "bob@example.com", false)
	f.store.addUser("carol", "carol@example.com", true)
	f.subscribe(t, confirmed.ID, "Oslo")
	f.subscribe(t, unconfirmed.ID, "Paris")

	report, err := f.svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Users)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "alice@example.com", f.mail.sent[0].To)
	assert.Contains(t, f.mail.sent[0].Text, "-2.0°C")
}

func TestRunOnce_DeliveryFailureContinues(t *testing.T) {
	f := newDigestFixture()
	a := f.store.addUser("alice", "alice@example.com", true)
	b := f.store.addUser("bob", "bob@example.com", true)
	f.subscribe(t, a.ID, "Paris")
	f.subscribe(t, b.ID, "Oslo")
	f.mail.fail["alice@example.com"] = errors.New("smtp 550")

	report, err := f.svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, f.mail.sent, 2, "delivery is attempted for every recipient")
	assert.NotContains(t, f.archive.puts, a.ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DigestEmails.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DigestEmails.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DigestRuns))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.DigestRunning))
}

func TestRunOnce_RecipientQueryFailure(t *testing.T) {
	f := newDigestFixture()
	f.svc.Relations = failingRelations{memRelations{f.store}}

	_, err := f.svc.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, f.mail.sent)
}

func TestRunOnce_NoOverlap(t *testing.T) {
	f := newDigestFixture()
	f.svc.mu.Lock()
	_, err := f.svc.RunOnce(context.Background())
	f.svc.mu.Unlock()
	assert.ErrorIs(t, err, ErrDigestInProgress)

	_, err = f.svc.RunOnce(context.Background())
	assert.NoError(t, err)
}

func TestRunOnce_CancellationDoesNotStopStartedRun(t *testing.T) {
	f := newDigestFixture()
	for _, name := range []string{"alice", "bob"} {
		u := f.store.addUser(name, name+"@example.com", true)
		f.subscribe(t, u.ID, "Paris")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := f.svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 2, report.Sent)
	assert.Len(t, f.mail.sent, 2)
}
