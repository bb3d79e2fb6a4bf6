package services

import (
	"context"
	"sync"
	"time"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ChangeMonitor drains the db_changes outbox into a ChangeFeed.
type ChangeMonitor struct {
	DB        *gorm.DB
	Feed      *ChangeFeed
	Interval  time.Duration
	BatchSize int
	// Processed rows older than Retention are purged. Zero keeps them.
	Retention time.Duration

	log    logrus.FieldLogger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewChangeMonitor(db *gorm.DB, feed *ChangeFeed, interval time.Duration, log logrus.FieldLogger) *ChangeMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &ChangeMonitor{
		DB:        db,
		Feed:      feed,
		Interval:  interval,
		BatchSize: 100,
		Retention: 24 * time.Hour,
		log:       utils.LoggerOrDefault(log),
	}
}

func (cm *ChangeMonitor) Start(ctx context.Context) {
	ctx, cm.cancel = context.WithCancel(ctx)
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		lastPurge := time.Now()
		for {
			select {
			case <-ticker.C:
				if _, err := cm.Poll(ctx); err != nil {
					cm.log.WithError(err).Error("Error processing changes")
				}
				if cm.Retention > 0 && time.Since(lastPurge) > time.Hour {
					cm.purge(ctx)
					lastPurge = time.Now()
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the polling loop and waits for it to exit.
func (cm *ChangeMonitor) Stop() {
	if cm.cancel != nil {
		cm.cancel()
	}
	cm.wg.Wait()
}

// Poll claims one batch of unprocessed changes and publishes the ones this
// instance claimed. Events go out only after the claim commits.
func (cm *ChangeMonitor) Poll(ctx context.Context) (int, error) {
	var claimed []models.DBChange

	err := cm.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var changes []models.DBChange
		if err := tx.Where("processed = ?", false).
			Order("id ASC").
			Limit(cm.BatchSize).
			Find(&changes).Error; err != nil {
			return err
		}

		for _, change := range changes {
			res := tx.Model(&models.DBChange{}).
				Where("id = ? AND processed = ?", change.ID, false).
				Update("processed", true)
			if res.Error != nil {
				return res.Error
			}
			// Another instance got there first.
			if res.RowsAffected == 0 {
				continue
			}
			claimed = append(claimed, change)
		}
		return nil
	})
	if err != nil {
		return 0, classifyDBError(err)
	}

	for _, change := range claimed {
		cm.log.WithFields(logrus.Fields{
			"table":     change.TableName,
			"action":    change.ActionType,
			"record_id": change.RecordID,
		}).Debug("Publishing change")

		cm.Feed.Publish(ChangeEvent{
			Schema:      change.SchemaName,
			Table:       change.TableName,
			Type:        change.ActionType,
			RecordID:    change.RecordID,
			CommittedAt: change.ChangedAt,
		})
	}
	return len(claimed), nil
}

func (cm *ChangeMonitor) purge(ctx context.Context) {
	res := cm.DB.WithContext(ctx).
		Where("processed = ? AND changed_at < ?", true, time.Now().Add(-cm.Retention)).
		Delete(&models.DBChange{})
	if res.Error != nil {
		cm.log.WithError(res.Error).Error("Error purging processed changes")
		return
	}
	if res.RowsAffected > 0 {
		cm.log.WithField("rows", res.RowsAffected).Info("Purged processed changes")
	}
}
