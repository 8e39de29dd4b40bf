package database

import (
	"fmt"

	"gorm.io/gorm"

	"marketplace/internal/model"
	"marketplace/pkg/log"
)

// Models every table owned by the marketplace, in creation order
func Models() []interface{} {
	return []interface{}{
		&model.Profile{},
		&model.Service{},
		&model.CartItem{},
		&model.Request{},
		&model.Response{},
		&model.Conversation{},
		&model.Notification{},
	}
}

// AutoMigrate auto migrate database table schema
func AutoMigrate(db *gorm.DB) error {
	log.Info("Starting database migration...")

	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
		log.Infof("Migrated model: %T", m)
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CheckTables reports tables missing from the current schema
func CheckTables(db *gorm.DB) ([]string, error) {
	var missing []string
	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("failed to parse %T: %w", m, err)
		}

		var count int64
		err := db.Raw("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", stmt.Schema.Table).
			Scan(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", stmt.Schema.Table, err)
		}
		if count == 0 {
			log.Warnf("Table not found: %s", stmt.Schema.Table)
			missing = append(missing, stmt.Schema.Table)
		}
	}
	return missing, nil
}
