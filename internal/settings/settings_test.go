package settings_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/settings"
	"folio/internal/testsupport"
)

func TestIsIPExcluded(t *testing.T) {
	t.Run("excludes exact IP match", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		err := settings.UpdateSetting(db, logger, settings.KeyExcludedIPs, "192.168.1.100")
		require.NoError(t, err)

		isExcluded, err := settings.IsIPExcluded("192.168.1.100")
		require.NoError(t, err)
		assert.True(t, isExcluded, "The exact IP in the exclusion list should be excluded")

		isExcluded, err = settings.IsIPExcluded("192.168.1.101")
		require.NoError(t, err)
		assert.False(t, isExcluded, "A different IP should not be excluded")
	})

	t.Run("handles IPs with whitespace", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		err := settings.UpdateSetting(db, logger, settings.KeyExcludedIPs, " 192.168.1.100 , 10.0.0.1 ")
		require.NoError(t, err)

		isExcluded, err := settings.IsIPExcluded("192.168.1.100")
		require.NoError(t, err)
		assert.True(t, isExcluded)

		isExcluded, err = settings.IsIPExcluded("10.0.0.1")
		require.NoError(t, err)
		assert.True(t, isExcluded)
	})

	t.Run("empty exclusion value excludes nothing", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		err := settings.UpdateSetting(db, logger, settings.KeyExcludedIPs, "")
		require.NoError(t, err)

		isExcluded, err := settings.IsIPExcluded("192.168.1.100")
		require.NoError(t, err)
		assert.False(t, isExcluded)

		isExcluded, err = settings.IsIPExcluded("")
		require.NoError(t, err)
		assert.False(t, isExcluded, "An empty address never matches")
	})

	t.Run("reflects updates to exclusion list", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		require.NoError(t, settings.UpdateSetting(db, logger, settings.KeyExcludedIPs, "192.168.1.100"))

		isExcluded, err := settings.IsIPExcluded("10.0.0.5")
		require.NoError(t, err)
		assert.False(t, isExcluded)

		require.NoError(t, settings.UpdateSetting(db, logger, settings.KeyExcludedIPs, "192.168.1.100,10.0.0.5"))

		isExcluded, err = settings.IsIPExcluded("10.0.0.5")
		require.NoError(t, err)
		assert.True(t, isExcluded, "Second IP should be excluded after update")
	})
}

func TestGetSetting(t *testing.T) {
	t.Run("returns value for existing setting", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		require.NoError(t, settings.UpdateSetting(db, logger, "test_setting", "test_value"))

		value, err := settings.GetSetting(db, "test_setting")
		require.NoError(t, err)
		assert.Equal(t, "test_value", value)
	})

	t.Run("returns error for non-existent setting", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		_, err := settings.GetSetting(db, "non_existent")
		assert.Error(t, err)
	})
}

func TestUpdateSetting(t *testing.T) {
	t.Run("updates existing setting", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		require.NoError(t, settings.UpdateSetting(db, logger, "test_setting", "initial_value"))
		require.NoError(t, settings.UpdateSetting(db, logger, "test_setting", "updated_value"))

		value, err := settings.GetSetting(db, "test_setting")
		require.NoError(t, err)
		assert.Equal(t, "updated_value", value)
	})

	t.Run("creates new setting if not exists", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		require.NoError(t, settings.UpdateSetting(db, logger, "new_setting", "new_value"))

		value, err := settings.GetSetting(db, "new_setting")
		require.NoError(t, err)
		assert.Equal(t, "new_value", value)
	})
}

func TestSetExcludedIPs(t *testing.T) {
	t.Run("stores cleaned unique list", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		stored, err := settings.SetExcludedIPs(db, logger, []string{" 10.0.0.1 ", "", "10.0.0.1", "::1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1", "::1"}, stored)

		list, err := settings.ExcludedIPs(db)
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1", "::1"}, list)

		isExcluded, err := settings.IsIPExcluded("::1")
		require.NoError(t, err)
		assert.True(t, isExcluded)
	})

	t.Run("stores addresses in canonical form", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		stored, err := settings.SetExcludedIPs(db, logger, []string{"2001:DB8::1", "2001:db8:0:0:0:0:0:1", "::ffff:203.0.113.9"})
		require.NoError(t, err)
		assert.Equal(t, []string{"2001:db8::1", "203.0.113.9"}, stored)

		for _, ip := range []string{"2001:db8::1", "2001:DB8::1", "203.0.113.9"} {
			isExcluded, err := settings.IsIPExcluded(ip)
			require.NoError(t, err)
			assert.True(t, isExcluded, ip)
		}
	})

	t.Run("rejects invalid addresses without writing", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		_, err := settings.SetExcludedIPs(db, logger, []string{"10.0.0.1", "not-an-ip"})
		assert.ErrorIs(t, err, settings.ErrInvalidIP)

		list, err := settings.ExcludedIPs(db)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
