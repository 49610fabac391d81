package repository

import (
	"context"

	"go-pen-inventory/internal/model"

	"gorm.io/gorm"
)

type RoleRepository interface {
	FindAll(ctx context.Context) ([]model.Role, error)
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	SeedDefaults(ctx context.Context) error
}

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Preload("Privileges").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).Preload("Privileges").Where("code = ?", code).First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// SeedDefaults creates the default roles and grants them their privileges.
// MASTER_ADMIN and ADMIN receive every privilege except that ADMIN cannot export;
// STAFF receives model.StaffPrivileges. Privileges must be seeded first.
func (r *roleRepo) SeedDefaults(ctx context.Context) error {
	db := r.db.WithContext(ctx)

	var all []model.Privilege
	if err := db.Find(&all).Error; err != nil {
		return err
	}

	for _, defaultRole := range model.DefaultRoles {
		var role model.Role
		err := db.Where("code = ?", defaultRole.Code).First(&role).Error
		if err == gorm.ErrRecordNotFound {
			// Role doesn't exist, create it
			role = defaultRole
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := db.Model(&role).Association("Privileges").Replace(grantsFor(role.Code, all)); err != nil {
			return err
		}
	}
	return nil
}

func grantsFor(roleCode string, all []model.Privilege) []model.Privilege {
	allowed := func(code string) bool {
		switch roleCode {
		case model.RoleMasterAdmin:
			return true
		case model.RoleAdmin:
			return code != model.PrivTransactionExport
		}
		for _, c := range model.StaffPrivileges {
			if c == code {
				return true
			}
		}
		return false
	}

	grants := make([]model.Privilege, 0, len(all))
	for _, p := range all {
		if allowed(p.Code) {
			grants = append(grants, p)
		}
	}
	return grants
}
