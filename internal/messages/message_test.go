package messages_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"folio/internal/messages"
	"folio/internal/testsupport"
)

func createMessage(t *testing.T, db *gorm.DB, email string, at time.Time) *messages.ContactMessage {
	t.Helper()
	msg, err := messages.Create(db, testsupport.GetLogger(), messages.CreateInput{
		Name:      "Jo",
		Email:     email,
		Subject:   "Hi there",
		Body:      "Hello, I need help.",
		IPAddress: "1.2.3.4",
		UserAgent: "test",
	}, at, nil)
	require.NoError(t, err)
	return msg
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("new messages start in status new with normalized email", func(t *testing.T) {
		msg := createMessage(t, db, "  Jo@X.com ", now)

		assert.NotZero(t, msg.ID)
		assert.Equal(t, messages.StatusNew, msg.Status)
		assert.Equal(t, "jo@x.com", msg.Email)
		assert.Nil(t, msg.RepliedAt)
		assert.True(t, msg.CreatedAt.Equal(now))
	})

	t.Run("guard error aborts creation", func(t *testing.T) {
		testsupport.CleanAllTables(db)
		blocked := errors.New("blocked")

		msg, err := messages.Create(db, testsupport.GetLogger(), messages.CreateInput{
			Name: "Jo", Email: "jo@x.com", Subject: "Hi there", Body: "Hello, I need help.", IPAddress: "1.2.3.4",
		}, now, func(tx *gorm.DB, email, ip string, at time.Time) error {
			assert.Equal(t, "jo@x.com", email)
			assert.Equal(t, "1.2.3.4", ip)
			return blocked
		})
		assert.Nil(t, msg)
		assert.ErrorIs(t, err, blocked)

		var count int64
		db.Model(&messages.ContactMessage{}).Count(&count)
		assert.Equal(t, int64(0), count)
	})
}

func TestList(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		createMessage(t, db, "list@x.com", base.Add(time.Duration(i)*time.Minute))
	}
	first, err := messages.List(db, messages.ListOptions{})
	require.NoError(t, err)
	_, err = messages.UpdateStatus(db, logger, first.Messages[0].ID, messages.StatusUpdate{Status: "archived"}, base)
	require.NoError(t, err)

	t.Run("defaults to first page of 20 newest first", func(t *testing.T) {
		result, err := messages.List(db, messages.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(5), result.Total)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, messages.DefaultPageSize, result.Limit)
		require.Len(t, result.Messages, 5)
		for i := 1; i < len(result.Messages); i++ {
			assert.False(t, result.Messages[i].CreatedAt.After(result.Messages[i-1].CreatedAt))
		}
	})

	t.Run("filters by status", func(t *testing.T) {
		status := messages.StatusNew
		result, err := messages.List(db, messages.ListOptions{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(4), result.Total)
		for _, m := range result.Messages {
			assert.Equal(t, messages.StatusNew, m.Status)
		}
	})

	t.Run("paginates", func(t *testing.T) {
		result, err := messages.List(db, messages.ListOptions{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), result.Total)
		assert.Len(t, result.Messages, 2)

		result, err = messages.List(db, messages.ListOptions{Page: 3, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, result.Messages, 1)
	})

	t.Run("caps limit at 200", func(t *testing.T) {
		result, err := messages.List(db, messages.ListOptions{Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, messages.MaxPageSize, result.Limit)
	})
}

func TestFetchAndMarkRead(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("opening a new message marks it read", func(t *testing.T) {
		msg := createMessage(t, db, "read@x.com", now)

		opened, err := messages.FetchAndMarkRead(db, logger, msg.ID, now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, messages.StatusRead, opened.Status)

		var stored messages.ContactMessage
		require.NoError(t, db.First(&stored, msg.ID).Error)
		assert.Equal(t, messages.StatusRead, stored.Status)
	})

	t.Run("opening a replied message keeps its status", func(t *testing.T) {
		msg := createMessage(t, db, "replied@x.com", now)
		_, err := messages.UpdateStatus(db, logger, msg.ID, messages.StatusUpdate{Status: "replied", AdminID: 1}, now)
		require.NoError(t, err)

		opened, err := messages.FetchAndMarkRead(db, logger, msg.ID, now)
		require.NoError(t, err)
		assert.Equal(t, messages.StatusReplied, opened.Status)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := messages.FetchAndMarkRead(db, logger, 99999, now)
		assert.ErrorIs(t, err, messages.ErrNotFound)
	})
}

func TestUpdateStatus(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("replied stamps repliedAt and repliedBy once", func(t *testing.T) {
		msg := createMessage(t, db, "reply@x.com", now)

		updated, err := messages.UpdateStatus(db, logger, msg.ID, messages.StatusUpdate{
			Status: "replied", Notes: strPtr("called back"), AdminID: 7,
		}, now.Add(time.Hour))
		require.NoError(t, err)
		require.NotNil(t, updated.RepliedAt)
		require.NotNil(t, updated.RepliedBy)
		assert.True(t, updated.RepliedAt.Equal(now.Add(time.Hour)))
		assert.Equal(t, uint(7), *updated.RepliedBy)
		assert.Equal(t, "called back", updated.Notes)

		again, err := messages.UpdateStatus(db, logger, msg.ID, messages.StatusUpdate{
			Status: "replied", AdminID: 8,
		}, now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.True(t, again.RepliedAt.Equal(now.Add(time.Hour)))
		assert.Equal(t, uint(7), *again.RepliedBy)
		assert.Equal(t, "called back", again.Notes, "notes are kept when not supplied")

		var stored messages.ContactMessage
		require.NoError(t, db.First(&stored, msg.ID).Error)
		require.NotNil(t, stored.RepliedAt)
		assert.True(t, stored.RepliedAt.Equal(now.Add(time.Hour)))
		assert.Equal(t, uint(7), *stored.RepliedBy)
	})

	t.Run("notes overwrite instead of append", func(t *testing.T) {
		msg := createMessage(t, db, "notes@x.com", now)

		_, err := messages.UpdateStatus(db, logger, msg.ID, messages.StatusUpdate{Status: "read", Notes: strPtr("first")}, now)
		require.NoError(t, err)
		updated, err := messages.UpdateStatus(db, logger, msg.ID, messages.StatusUpdate{Status: "read", Notes: strPtr("second")}, now)
		require.NoError(t, err)
		assert.Equal(t, "second", updated.Notes)
	})

	t.Run("archived is reachable from any state and can go back", func(t *testing.T) {
		msg := createMessage(t, db, "archive@x.com", now)

		archived, err := messages.UpdateStatus(db, logger, msg.ID, messages.StatusUpdate{Status: "archived"}, now)
		require.NoError(t, err)
		assert.Equal(t, messages.StatusArchived, archived.Status)
		assert.Nil(t, archived.RepliedAt)

		back, err := messages.UpdateStatus(db, logger, msg.ID, messages.StatusUpdate{Status: "new"}, now)
		require.NoError(t, err)
		assert.Equal(t, messages.StatusNew, back.Status)
	})

	t.Run("invalid status is rejected before any write", func(t *testing.T) {
		msg := createMessage(t, db, "invalid@x.com", now)

		_, err := messages.UpdateStatus(db, logger, msg.ID, messages.StatusUpdate{Status: "spam", Notes: strPtr("x")}, now)
		assert.ErrorIs(t, err, messages.ErrInvalidStatus)

		var stored messages.ContactMessage
		require.NoError(t, db.First(&stored, msg.ID).Error)
		assert.Equal(t, messages.StatusNew, stored.Status)
		assert.Empty(t, stored.Notes)
	})

	t.Run("invalid status on unknown id reports invalid status", func(t *testing.T) {
		_, err := messages.UpdateStatus(db, logger, 99999, messages.StatusUpdate{Status: "spam"}, now)
		assert.ErrorIs(t, err, messages.ErrInvalidStatus)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := messages.UpdateStatus(db, logger, 99999, messages.StatusUpdate{Status: "read"}, now)
		assert.ErrorIs(t, err, messages.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	msg := createMessage(t, db, "delete@x.com", now)

	require.NoError(t, messages.Delete(db, logger, msg.ID))

	_, err := messages.FetchAndMarkRead(db, logger, msg.ID, now)
	assert.ErrorIs(t, err, messages.ErrNotFound)

	assert.ErrorIs(t, messages.Delete(db, logger, msg.ID), messages.ErrNotFound)
}

func TestCountByStatus(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	a := createMessage(t, db, "a@x.com", now)
	createMessage(t, db, "b@x.com", now)
	_, err := messages.UpdateStatus(db, logger, a.ID, messages.StatusUpdate{Status: "replied", AdminID: 1}, now)
	require.NoError(t, err)

	counts, err := messages.CountByStatus(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[messages.StatusNew])
	assert.Equal(t, int64(1), counts[messages.StatusReplied])
	assert.Equal(t, int64(0), counts[messages.StatusArchived])
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"new", "READ", " replied ", "archived"} {
		_, err := messages.ParseStatus(s)
		assert.NoError(t, err, s)
	}
	_, err := messages.ParseStatus("unread")
	assert.ErrorIs(t, err, messages.ErrInvalidStatus)
}
