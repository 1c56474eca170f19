package models

import "gorm.io/gorm"

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&MenuItem{},
		&Order{},
		&OrderItem{},
		&Payment{},
	}
}

// AutoMigrate creates or updates the schema for every model
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
