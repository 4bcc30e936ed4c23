package database

import "ember/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM
// models, parents before children.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Swipe{},
		&models.Match{},
		&models.Message{},
	}
}
