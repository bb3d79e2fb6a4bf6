package services

import (
	"context"
	"errors"
	"strings"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type TableInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Capacity    int    `json:"capacity"`
}

// TableAdmin edits table metadata. Status is never writable here.
type TableAdmin struct {
	db       *gorm.DB
	recorder ChangeRecorder
	log      logrus.FieldLogger
}

func NewTableAdmin(db *gorm.DB, recorder ChangeRecorder, log logrus.FieldLogger) *TableAdmin {
	if recorder == nil {
		recorder = OutboxRecorder{}
	}
	return &TableAdmin{db: db, recorder: recorder, log: utils.LoggerOrDefault(log)}
}

func validateTableInput(in TableInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("name", "table name is required")
	}
	if in.Capacity < 0 {
		return validationError("capacity", "capacity must not be negative")
	}
	return nil
}

func (a *TableAdmin) Create(ctx context.Context, in TableInput) (*models.Table, error) {
	if err := validateTableInput(in); err != nil {
		return nil, err
	}
	table := models.Table{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Capacity:    in.Capacity,
		Status:      models.TableStatusAvailable,
	}
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&table).Error; err != nil {
			return err
		}
		return a.recorder.Record(tx, "tables", table.ID, models.ChangeInsert)
	})
	if err != nil {
		return nil, classifyDBError(err)
	}
	a.log.WithField("table_id", table.ID).Info("Table created")
	return &table, nil
}

func (a *TableAdmin) Update(ctx context.Context, id uint, in TableInput) (*models.Table, error) {
	if err := validateTableInput(in); err != nil {
		return nil, err
	}
	var table models.Table
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&table, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("table", id)
			}
			return err
		}
		table.Name = strings.TrimSpace(in.Name)
		table.Description = in.Description
		table.Capacity = in.Capacity
		if err := tx.Model(&table).Select("name", "description", "capacity", "updated_at").
			Updates(&table).Error; err != nil {
			return err
		}
		return a.recorder.Record(tx, "tables", id, models.ChangeUpdate)
	})
	if err != nil {
		return nil, classifyDBError(err)
	}
	return &table, nil
}

// Delete removes a table that no active order references.
func (a *TableAdmin) Delete(ctx context.Context, id uint) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.Order{}).
			Where("table_id = ? AND status IN ?", id, models.ActiveOrderStatuses).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return conflictError("table still has an active order")
		}

		res := tx.Delete(&models.Table{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFoundError("table", id)
		}
		return a.recorder.Record(tx, "tables", id, models.ChangeDelete)
	})
	if err != nil {
		return classifyDBError(err)
	}
	a.log.WithField("table_id", id).Info("Table deleted")
	return nil
}
