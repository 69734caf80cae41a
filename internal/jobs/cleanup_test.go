package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/jobs"
	"folio/internal/testsupport"
	"folio/internal/users"
)

func TestCleanupJob(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	admin := testsupport.CreateTestUser(t, db, "admin@example.com", "password123")
	now := time.Now().UTC()

	live, _, err := users.IssueToken(db, logger, admin.ID, time.Hour, now)
	require.NoError(t, err)
	require.NoError(t, db.Create(&users.Token{UserID: admin.ID, TokenHash: "expired", ExpiresAt: now.Add(-time.Minute)}).Error)

	require.NoError(t, jobs.NewCleanupJob(dbManager, logger).Run())

	var remaining int64
	db.Model(&users.Token{}).Count(&remaining)
	assert.Equal(t, int64(1), remaining)

	user, err := users.VerifyToken(db, live, now)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, user.ID)
}

func TestSchedulerStartStop(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	s := jobs.NewScheduler(dbManager, logger)
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	s.Stop()
	assert.False(t, s.IsRunning())
}
