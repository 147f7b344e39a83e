package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ariebrainware/medibot/model"
	"github.com/ariebrainware/medibot/notify"
	"github.com/ariebrainware/medibot/reminder"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb_scheduler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.MedicationReminder{}))
	return db
}

// fakeDispatcher records calls and optionally blocks until release is closed.
type fakeDispatcher struct {
	mu      sync.Mutex
	calls   [][]model.MedicationReminder
	clocks  []string
	entered chan struct{}
	release chan struct{}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, reminders []model.MedicationReminder, clock string) notify.Report {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, reminders)
	f.clocks = append(f.clocks, clock)
	return notify.Report{Matched: len(reminders), Sent: len(reminders)}
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	store := reminder.NewStore(db)
	_, err := store.Create(context.Background(), reminder.CreateInput{
		UserID:        1,
		MedicineName:  "Aspirin",
		ReminderTimes: reminder.TimeList{"08:00", "20:00"},
		Email:         "a@b.co",
		StartDate:     "2024-05-01",
		EndDate:       "2024-05-31",
	})
	require.NoError(t, err)
}

func TestTick_DispatchesDueReminders(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)

	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	disp := &fakeDispatcher{}
	s, err := New(db, disp, zerolog.Nop(), Options{
		Location: loc,
		// 00:00 UTC is 08:00 in Shanghai.
		Now: func() time.Time { return time.Date(2024, 5, 10, 0, 0, 15, 0, time.UTC) },
	})
	require.NoError(t, err)

	report, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, "08:00", report.Clock)
	assert.Equal(t, 1, report.Report.Matched)
	require.Equal(t, 1, disp.callCount())
	assert.Equal(t, "08:00", disp.clocks[0])

	ticks, skipped := s.Stats()
	assert.Equal(t, int64(1), ticks)
	assert.Zero(t, skipped)
	assert.Equal(t, Idle, s.State())
}

func TestTick_NoMatch(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)

	disp := &fakeDispatcher{}
	s, err := New(db, disp, zerolog.Nop(), Options{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 5, 10, 8, 1, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	report, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Report.Matched)
	require.Equal(t, 1, disp.callCount())
	assert.Empty(t, disp.calls[0])
}

func TestTick_OverlappingTickIsDropped(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)

	disp := &fakeDispatcher{entered: make(chan struct{}, 1), release: make(chan struct{})}
	s, err := New(db, disp, zerolog.Nop(), Options{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	done := make(chan TickReport, 1)
	go func() {
		r, _ := s.Tick(context.Background())
		done <- r
	}()

	<-disp.entered
	assert.Equal(t, Running, s.State())

	second, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	close(disp.release)
	first := <-done
	assert.False(t, first.Skipped)
	assert.Equal(t, 1, first.Report.Sent)

	assert.Equal(t, 1, disp.callCount())
	ticks, skipped := s.Stats()
	assert.Equal(t, int64(1), ticks)
	assert.Equal(t, int64(1), skipped)
	assert.Equal(t, Idle, s.State())
}

func TestTick_QueryErrorReleasesGuard(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&model.MedicationReminder{}))

	s, err := New(db, &fakeDispatcher{}, zerolog.Nop(), Options{})
	require.NoError(t, err)

	_, err = s.Tick(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Idle, s.State())
}

func TestNew_Validation(t *testing.T) {
	db := setupTestDB(t)

	_, err := New(nil, &fakeDispatcher{}, zerolog.Nop(), Options{})
	assert.Error(t, err)

	_, err = New(db, nil, zerolog.Nop(), Options{})
	assert.Error(t, err)

	_, err = New(db, &fakeDispatcher{}, zerolog.Nop(), Options{Spec: "every minute"})
	assert.Error(t, err)

	s, err := New(db, &fakeDispatcher{}, zerolog.Nop(), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSpec, s.spec)
	assert.Equal(t, time.Local, s.loc)
}

func TestDefaultSpec_FiresOnMinuteBoundaries(t *testing.T) {
	s, err := New(setupTestDB(t), &fakeDispatcher{}, zerolog.Nop(), Options{Location: time.UTC})
	require.NoError(t, err)

	sched, err := s.parser.Parse(s.spec)
	require.NoError(t, err)

	late := time.Date(2024, 5, 10, 7, 59, 59, 950_000_000, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC), sched.Next(late))

	started := time.Date(2024, 5, 10, 8, 0, 17, 0, time.UTC)
	next := sched.Next(started)
	assert.Equal(t, time.Date(2024, 5, 10, 8, 1, 0, 0, time.UTC), next)
	assert.Equal(t, "08:01", reminder.FormatClock(next))
}

func TestStartStop(t *testing.T) {
	db := setupTestDB(t)
	disp := &fakeDispatcher{}
	s, err := New(db, disp, zerolog.Nop(), Options{Spec: "@every 1s", Location: time.UTC})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool { return disp.callCount() >= 1 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
