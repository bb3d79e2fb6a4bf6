package services

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/cafein/cafein-backend/database"
	"github.com/cafein/cafein-backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database. One connection keeps
// concurrent transactions serialized the way a real server would lock rows.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seedTable(t *testing.T, db *gorm.DB, name, status string) models.Table {
	t.Helper()
	table := models.Table{Name: name, Capacity: 4, Status: status}
	require.NoError(t, db.Create(&table).Error)
	return table
}

func seedMenu(t *testing.T, db *gorm.DB, name string, price int64, discount int) models.Menu {
	t.Helper()
	menu := models.Menu{Name: name, Price: price, Discount: discount, Category: models.MenuCategoryMains, IsAvailable: true}
	require.NoError(t, db.Create(&menu).Error)
	return menu
}

func reloadTable(t *testing.T, db *gorm.DB, id uint) models.Table {
	t.Helper()
	var table models.Table
	require.NoError(t, db.First(&table, id).Error)
	return table
}

func reloadOrder(t *testing.T, db *gorm.DB, id uint) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, db.First(&order, id).Error)
	return order
}

func pendingChanges(t *testing.T, db *gorm.DB) []models.DBChange {
	t.Helper()
	var changes []models.DBChange
	require.NoError(t, db.Where("processed = ?", false).Order("id ASC").Find(&changes).Error)
	return changes
}

func newLifecycle(db *gorm.DB) *OrderLifecycle {
	return NewOrderLifecycle(db, OutboxRecorder{}, quietLogger())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}
