package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Role ids assigned by SeedRoles, in seeding order.
const (
	RoleAdmin        uint32 = 1
	RoleProfessional uint32 = 2
)

type Role struct {
	gorm.Model
	ID   uint32 `gorm:"primary_key;auto_increment" json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`
}

// SeedRoles inserts the built-in roles, skipping any that already exist so
// the seed is safe to run on every startup.
func SeedRoles(db *gorm.DB) error {
	for _, role := range []Role{{Name: "Admin"}, {Name: "Professional"}} {
		var existing Role
		err := db.Where("name = ?", role.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role.Name, err)
		}
	}
	return nil
}
