package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "watchdog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTarget(t *testing.T, db *Database) *Target {
	t.Helper()
	target := &Target{
		Name:           "api",
		URL:            "http://api.test",
		Method:         "GET",
		ExpectedStatus: 200,
		Timeout:        10,
		Enabled:        true,
		AlertChannels:  "slack,email",
	}
	require.NoError(t, db.UpsertTarget(target))
	return target
}

func seedCheck(t *testing.T, db *Database, targetID uint, status CheckStatus) *Check {
	t.Helper()
	check := &Check{TargetID: targetID, Status: status}
	require.NoError(t, db.RecordCheck(check))
	return check
}

func TestUpsertTargetKeyedByName(t *testing.T) {
	db := newTestDB(t)
	target := seedTarget(t, db)
	originalID := target.ID

	updated := &Target{
		Name:           "api",
		URL:            "http://api.test/v2",
		Method:         "POST",
		ExpectedStatus: 201,
		Timeout:        5,
		Enabled:        true,
		AlertChannels:  "slack",
	}
	require.NoError(t, db.UpsertTarget(updated))

	assert.Equal(t, originalID, updated.ID)

	targets, err := db.ListTargets()
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "http://api.test/v2", targets[0].URL)
	assert.Equal(t, 201, targets[0].ExpectedStatus)
}

func TestListEnabledTargets(t *testing.T) {
	db := newTestDB(t)
	seedTarget(t, db)

	disabled := &Target{Name: "off", URL: "http://off.test", Enabled: false}
	require.NoError(t, db.UpsertTarget(disabled))

	enabled, err := db.ListEnabledTargets()
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "api", enabled[0].Name)
}

func TestRecordCheck(t *testing.T) {
	db := newTestDB(t)
	target := seedTarget(t, db)

	code := 200
	rt := 123.4
	check := &Check{
		TargetID:     target.ID,
		Status:       StatusSuccess,
		StatusCode:   &code,
		ResponseTime: &rt,
	}
	require.NoError(t, db.RecordCheck(check))
	assert.NotZero(t, check.ID)

	checks, err := db.GetRecentTargetChecks(target.ID, 10)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, StatusSuccess, checks[0].Status)
	require.NotNil(t, checks[0].ResponseTime)
	assert.Equal(t, 123.4, *checks[0].ResponseTime)
}

func TestGetOpenIncident(t *testing.T) {
	db := newTestDB(t)
	target := seedTarget(t, db)

	open, err := db.GetOpenIncident(target.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	check := seedCheck(t, db, target.ID, StatusFailure)
	incident, err := db.CreateIncident(target.ID, check.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, incident.FailureCount)
	assert.Equal(t, IncidentOpen, incident.Status)

	open, err = db.GetOpenIncident(target.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, incident.ID, open.ID)
}

func TestGetOpenIncidentIntegrityViolation(t *testing.T) {
	db := newTestDB(t)
	target := seedTarget(t, db)
	check := seedCheck(t, db, target.ID, StatusFailure)

	_, err := db.CreateIncident(target.ID, check.ID)
	require.NoError(t, err)
	_, err = db.CreateIncident(target.ID, check.ID)
	require.NoError(t, err)

	_, err = db.GetOpenIncident(target.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncidentIntegrity)
}

func TestUpdateIncident(t *testing.T) {
	db := newTestDB(t)
	target := seedTarget(t, db)
	check := seedCheck(t, db, target.ID, StatusFailure)

	incident, err := db.CreateIncident(target.ID, check.ID)
	require.NoError(t, err)

	next := seedCheck(t, db, target.ID, StatusTimeout)
	require.NoError(t, db.UpdateIncident(incident.ID, next.ID, true))

	got, err := db.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FailureCount)
	assert.Equal(t, next.ID, got.LastCheckID)

	// Without incrementCount only the contributing check advances.
	third := seedCheck(t, db, target.ID, StatusFailure)
	require.NoError(t, db.UpdateIncident(incident.ID, third.ID, false))

	got, err = db.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FailureCount)
	assert.Equal(t, third.ID, got.LastCheckID)
}

func TestResolveIncidentIsTerminal(t *testing.T) {
	db := newTestDB(t)
	target := seedTarget(t, db)
	check := seedCheck(t, db, target.ID, StatusFailure)

	incident, err := db.CreateIncident(target.ID, check.ID)
	require.NoError(t, err)

	require.NoError(t, db.ResolveIncident(incident.ID))

	got, err := db.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, IncidentResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	firstResolvedAt := *got.ResolvedAt

	// Resolving again is a no-op; the WHERE on status protects the row.
	require.NoError(t, db.ResolveIncident(incident.ID))
	got, err = db.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.True(t, got.ResolvedAt.Equal(firstResolvedAt))

	open, err := db.GetOpenIncident(target.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestMarkAlertSent(t *testing.T) {
	db := newTestDB(t)
	target := seedTarget(t, db)
	check := seedCheck(t, db, target.ID, StatusFailure)

	incident, err := db.CreateIncident(target.ID, check.ID)
	require.NoError(t, err)

	for _, ch := range []AlertChannel{ChannelSlack, ChannelEmail, ChannelSMS} {
		require.NoError(t, db.MarkAlertSent(incident.ID, ch))
	}

	got, err := db.GetIncident(incident.ID)
	require.NoError(t, err)
	assert.True(t, got.SlackAlerted)
	assert.True(t, got.EmailAlerted)
	assert.True(t, got.SMSAlerted)

	err = db.MarkAlertSent(incident.ID, AlertChannel("pager"))
	assert.Error(t, err)
}

func TestGetCheckStats(t *testing.T) {
	db := newTestDB(t)
	target := seedTarget(t, db)

	code := 200
	for _, rt := range []float64{100, 200} {
		v := rt
		require.NoError(t, db.RecordCheck(&Check{
			TargetID:     target.ID,
			Status:       StatusSuccess,
			StatusCode:   &code,
			ResponseTime: &v,
		}))
	}
	seedCheck(t, db, target.ID, StatusFailure)

	total, successful, avg, err := db.GetCheckStats(target.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), successful)
	assert.InDelta(t, 150.0, avg, 0.001)
}

func TestTargetChannels(t *testing.T) {
	target := &Target{AlertChannels: "slack, email,pager"}
	assert.Equal(t, []AlertChannel{ChannelSlack, ChannelEmail}, target.Channels())
	assert.True(t, target.HasChannel(ChannelSlack))
	assert.False(t, target.HasChannel(ChannelSMS))

	empty := &Target{}
	assert.Empty(t, empty.Channels())

	assert.Equal(t, "slack,sms", JoinChannels([]AlertChannel{ChannelSlack, ChannelSMS}))
}

func TestTransactionRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	target := seedTarget(t, db)

	err := db.Transaction(func(tx *Database) error {
		check := &Check{TargetID: target.ID, Status: StatusFailure}
		if err := tx.RecordCheck(check); err != nil {
			return err
		}
		if _, err := tx.CreateIncident(target.ID, check.ID); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	checks, dbErr := db.GetRecentTargetChecks(target.ID, 10)
	require.NoError(t, dbErr)
	assert.Empty(t, checks)

	open, dbErr := db.GetOpenIncident(target.ID)
	require.NoError(t, dbErr)
	assert.Nil(t, open)
}
