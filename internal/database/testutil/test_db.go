package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/LahoumaBarik/SchoolBag/internal/database"
	"github.com/LahoumaBarik/SchoolBag/internal/models"
)

// MustOpenTestDB opens an in-memory SQLite database for tests with the full
// schema migrated. The connection is automatically closed via t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// MustSeedUser inserts an owner row so fixtures referencing the ID satisfy
// the ownership foreign keys on tasks and notifications.
func MustSeedUser(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()

	user := models.User{
		BaseModel: models.BaseModel{ID: id},
		Username:  id,
		Email:     id + "@example.com",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}
