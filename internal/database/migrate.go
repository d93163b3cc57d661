package database

import (
	"gorm.io/gorm"

	"github.com/sai-edu/sai-backend/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Credential{},
		&domain.RefreshToken{},
	)
}
