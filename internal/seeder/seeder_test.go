package seeder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/content"
	"folio/internal/messages"
	"folio/internal/seeder"
	"folio/internal/services"
	"folio/internal/testsupport"
	"folio/internal/users"
	"folio/internal/visits"
)

func TestSeederRun(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	s := seeder.NewSeeder(dbManager, logger, 40)
	require.NoError(t, s.Run(context.Background()))

	admin, err := users.FindByEmail(db, seeder.DefaultAdminEmail)
	require.NoError(t, err)
	assert.NotZero(t, admin.ID)

	var visitCount int64
	db.Model(&visits.VisitRecord{}).Count(&visitCount)
	assert.Equal(t, int64(40), visitCount)

	list, err := messages.List(db, messages.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)

	published, err := services.List(db, true)
	require.NoError(t, err)
	assert.Len(t, published, 3)

	_, err = content.Get(db, "hero.title")
	assert.NoError(t, err)

	t.Run("running twice keeps one admin and one copy of each service", func(t *testing.T) {
		require.NoError(t, seeder.NewSeeder(dbManager, logger, 0).Run(context.Background()))

		var adminCount int64
		db.Model(&users.User{}).Count(&adminCount)
		assert.Equal(t, int64(1), adminCount)

		all, err := services.List(db, false)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})
}
