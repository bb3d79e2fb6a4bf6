package services

import (
	"context"

	"github.com/cafein/cafein-backend/models"
	"gorm.io/gorm"
)

// TableRegistry is the read side of the tables entity. Status only changes
// through OrderLifecycle.
type TableRegistry struct {
	db *gorm.DB
}

func NewTableRegistry(db *gorm.DB) *TableRegistry {
	return &TableRegistry{db: db}
}

// ListTables returns every table ordered by creation time, then status.
func (r *TableRegistry) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("status ASC").
		Order("id ASC").
		Find(&tables).Error
	if err != nil {
		return nil, classifyDBError(err)
	}
	return tables, nil
}

func (r *TableRegistry) FindByID(ctx context.Context, tableID uint) (*models.Table, error) {
	var table models.Table
	if err := r.db.WithContext(ctx).First(&table, tableID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, notFoundError("table", tableID)
		}
		return nil, classifyDBError(err)
	}
	return &table, nil
}

// CountByStatus returns the number of tables per status. Statuses with no
// tables are reported as zero.
func (r *TableRegistry) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Table{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, classifyDBError(err)
	}

	counts := map[string]int64{
		models.TableStatusAvailable: 0,
		models.TableStatusReserved:  0,
		models.TableStatusProcess:   0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
