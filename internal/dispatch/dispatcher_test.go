package dispatch_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"remindbot/internal/dispatch"
	"remindbot/internal/logger"
	"remindbot/internal/models"
	"remindbot/internal/store"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Deliver(ctx context.Context, recipientID int64, text string) error {
	args := m.Called(ctx, recipientID, text)
	return args.Error(0)
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) PublishDelivery(userID, reminderID int64, eventName string) error {
	args := m.Called(userID, reminderID, eventName)
	return args.Error(0)
}

func setupTestStore(t *testing.T) *store.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, table := range []interface{}{
		(*models.Event)(nil),
		(*models.Reminder)(nil),
		(*models.UserSettings)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, table))
	}

	return &store.DB{Bun: bunDB}
}

func newTestDispatcher(db *store.DB, channel dispatch.DeliveryChannel) *dispatch.Dispatcher {
	d := dispatch.NewDispatcher(db, channel, logger.NewLogger(""), "Europe/Moscow", 30*time.Second)
	// 05:55 UTC is 08:55 on the Moscow wall clock.
	d.Now = func() time.Time {
		return time.Date(2025, 3, 1, 5, 55, 0, 0, time.UTC)
	}
	return d
}

func TestCycleDeliversDueReminderExactlyOnce(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	eventID, err := db.CreateEvent(ctx, 7, "Standup", "01.03.2025", "09:00")
	require.NoError(t, err)
	_, err = db.CreateReminder(ctx, eventID, "01.03.2025", "08:55")
	require.NoError(t, err)

	channel := new(MockChannel)
	channel.On("Deliver", mock.Anything, int64(7),
		"🔔 REMINDER 🔔\n\nEvent: Standup\nDate: 01.03.2025\nTime: 09:00").
		Return(nil).Once()

	d := newTestDispatcher(db, channel)
	d.RunCycle(ctx)

	channel.AssertExpectations(t)

	// The reminder is gone, so a second cycle in the same minute is a no-op.
	reminders, err := db.ListReminders(ctx, eventID)
	require.NoError(t, err)
	assert.Empty(t, reminders)

	d.RunCycle(ctx)
	channel.AssertNumberOfCalls(t, "Deliver", 1)
}

func TestCycleIgnoresNonMatchingReminders(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	eventID, err := db.CreateEvent(ctx, 7, "Standup", "01.03.2025", "09:00")
	require.NoError(t, err)
	_, err = db.CreateReminder(ctx, eventID, "01.03.2025", "08:56")
	require.NoError(t, err)
	_, err = db.CreateReminder(ctx, eventID, "02.03.2025", "08:55")
	require.NoError(t, err)

	channel := new(MockChannel)
	d := newTestDispatcher(db, channel)
	d.RunCycle(ctx)

	channel.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)

	reminders, err := db.ListReminders(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, reminders, 2)
}

func TestFailedDeliveryKeepsReminderForRetry(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	eventID, err := db.CreateEvent(ctx, 7, "Standup", "01.03.2025", "09:00")
	require.NoError(t, err)
	_, err = db.CreateReminder(ctx, eventID, "01.03.2025", "08:55")
	require.NoError(t, err)

	channel := new(MockChannel)
	channel.On("Deliver", mock.Anything, int64(7), mock.Anything).
		Return(errors.New("telegram: 502")).Once()
	channel.On("Deliver", mock.Anything, int64(7), mock.Anything).
		Return(nil).Once()

	d := newTestDispatcher(db, channel)

	// First cycle fails to send: the reminder must survive.
	d.RunCycle(ctx)
	reminders, err := db.ListReminders(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, reminders, 1)

	// Still inside the same minute, the retry succeeds and consumes it.
	d.RunCycle(ctx)
	reminders, err = db.ListReminders(ctx, eventID)
	require.NoError(t, err)
	assert.Empty(t, reminders)

	channel.AssertExpectations(t)
}

func TestBrokenUserDoesNotBlockOthers(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	// User 7 has an unloadable timezone stored; user 8 is healthy.
	require.NoError(t, db.SetUserTimezone(ctx, 7, "Not/AZone"))
	badEvent, err := db.CreateEvent(ctx, 7, "Unreachable", "01.03.2025", "09:00")
	require.NoError(t, err)
	_, err = db.CreateReminder(ctx, badEvent, "01.03.2025", "08:55")
	require.NoError(t, err)

	require.NoError(t, db.SetUserTimezone(ctx, 8, "Europe/Moscow"))
	goodEvent, err := db.CreateEvent(ctx, 8, "Standup", "01.03.2025", "09:00")
	require.NoError(t, err)
	_, err = db.CreateReminder(ctx, goodEvent, "01.03.2025", "08:55")
	require.NoError(t, err)

	channel := new(MockChannel)
	channel.On("Deliver", mock.Anything, int64(8), mock.Anything).Return(nil).Once()

	d := newTestDispatcher(db, channel)
	d.RunCycle(ctx)

	channel.AssertExpectations(t)
	channel.AssertNotCalled(t, "Deliver", mock.Anything, int64(7), mock.Anything)
}

func TestUsersWithoutSettingsRowAreStillServed(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	// No user_settings row: the user is found through event ownership and
	// matched against the default timezone.
	eventID, err := db.CreateEvent(ctx, 7, "Standup", "01.03.2025", "09:00")
	require.NoError(t, err)
	_, err = db.CreateReminder(ctx, eventID, "01.03.2025", "08:55")
	require.NoError(t, err)

	channel := new(MockChannel)
	channel.On("Deliver", mock.Anything, int64(7), mock.Anything).Return(nil).Once()

	d := newTestDispatcher(db, channel)
	d.RunCycle(ctx)

	channel.AssertExpectations(t)
}

func TestUserTimezoneShiftsTheMatchingClock(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	// Omsk is UTC+6: at 05:55 UTC the Omsk wall clock reads 11:55.
	require.NoError(t, db.SetUserTimezone(ctx, 7, "Asia/Omsk"))
	eventID, err := db.CreateEvent(ctx, 7, "Standup", "01.03.2025", "12:00")
	require.NoError(t, err)
	_, err = db.CreateReminder(ctx, eventID, "01.03.2025", "11:55")
	require.NoError(t, err)
	_, err = db.CreateReminder(ctx, eventID, "01.03.2025", "08:55")
	require.NoError(t, err)

	channel := new(MockChannel)
	channel.On("Deliver", mock.Anything, int64(7), mock.Anything).Return(nil).Once()

	d := newTestDispatcher(db, channel)
	d.RunCycle(ctx)

	channel.AssertExpectations(t)

	reminders, err := db.ListReminders(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "08:55", reminders[0].ReminderTime)
}

func TestAuditPublisherSeesSuccessfulDeliveries(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	eventID, err := db.CreateEvent(ctx, 7, "Standup", "01.03.2025", "09:00")
	require.NoError(t, err)
	reminderID, err := db.CreateReminder(ctx, eventID, "01.03.2025", "08:55")
	require.NoError(t, err)

	channel := new(MockChannel)
	channel.On("Deliver", mock.Anything, int64(7), mock.Anything).Return(nil).Once()

	audit := new(MockAudit)
	// A failing audit publish is logged but never undoes the delivery.
	audit.On("PublishDelivery", int64(7), reminderID, "Standup").
		Return(errors.New("kafka: broker unreachable")).Once()

	d := newTestDispatcher(db, channel)
	d.Audit = audit
	d.RunCycle(ctx)

	channel.AssertExpectations(t)
	audit.AssertExpectations(t)

	reminders, err := db.ListReminders(ctx, eventID)
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	db := setupTestStore(t)
	channel := new(MockChannel)

	d := newTestDispatcher(db, channel)
	d.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop after context cancellation")
	}
}
