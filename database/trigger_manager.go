package database

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/cafein/cafein-backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

//go:embed migrations/orders_notify.sql
var ordersNotifySQL string

const statementMarker = "-- +statement"

// SplitStatements cuts a migration script on statement markers. Function
// bodies contain semicolons, so splitting on ";" is not an option.
func SplitStatements(script string) []string {
	var out []string
	for _, block := range strings.Split(script, statementMarker) {
		stmt := strings.TrimSpace(block)
		if stmt == "" || commentOnly(stmt) {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func commentOnly(block string) bool {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

// ExecuteTriggers installs the pg_notify triggers that feed the live change
// source. Only Postgres supports them; other dialects are skipped.
func ExecuteTriggers(db *gorm.DB, channel string) error {
	if db.Dialector.Name() != "postgres" {
		utils.InfoLogger.WithField("dialect", db.Dialector.Name()).
			Info("Skipping notify triggers: dialect has no LISTEN/NOTIFY")
		return nil
	}

	script := strings.ReplaceAll(ordersNotifySQL, "{{channel}}", channel)
	for _, stmt := range SplitStatements(script) {
		if err := db.Exec(stmt).Error; err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"error":     err,
				"statement": firstLine(stmt),
			}).Error("Error executing trigger statement")
			return fmt.Errorf("install notify trigger: %w", err)
		}
	}

	var triggers []struct {
		TriggerName string
		EventType   string
		TableName   string
	}
	db.Raw(`
		SELECT trigger_name, event_manipulation AS event_type, event_object_table AS table_name
		FROM information_schema.triggers
		WHERE trigger_name LIKE 'cafein_%'
	`).Scan(&triggers)

	for _, t := range triggers {
		utils.InfoLogger.WithFields(logrus.Fields{
			"trigger": t.TriggerName,
			"event":   t.EventType,
			"table":   t.TableName,
		}).Info("Trigger verified")
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
