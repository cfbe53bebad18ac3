package database

import (
	"log"

	"backend/internal/model"

	"gorm.io/gorm"
)

// seedPermission is a compact literal form for the default permission set
type seedPermission struct {
	Code  string
	Name  string
	Group string
}

var defaultPermissions = []seedPermission{
	{"users.read", "View users", "users"},
	{"users.write", "Create and update users", "users"},
	{"users.delete", "Delete users", "users"},
	{"stock.read", "View items and supplies", "stock"},
	{"stock.write", "Create and update items and supplies", "stock"},
	{"stock.adjust", "Adjust stock quantities", "stock"},
	{"requests.read", "View requests", "requests"},
	{"requests.create", "Submit requests", "requests"},
	{"requests.approve_level_1", "Approve requests at level 1", "requests"},
	{"requests.approve_level_2", "Approve requests at level 2", "requests"},
	{"requests.approve_level_3", "Approve requests at level 3", "requests"},
	{"requests.complete", "Fulfill approved requests", "requests"},
	{"notifications.read", "View delivery logs", "notifications"},
	{"audit.read", "View audit log", "audit"},
}

// rolePermissions maps each built-in role to its permission codes
var rolePermissions = map[string][]string{
	model.RoleOperator: {
		"stock.read", "stock.write", "stock.adjust",
		"requests.read", "requests.complete",
	},
	model.RoleStaff: {
		"stock.read", "requests.read", "requests.create",
	},
	model.ApproverRoleForLevel(1): {"requests.read", "requests.approve_level_1"},
	model.ApproverRoleForLevel(2): {"requests.read", "requests.approve_level_2"},
	model.ApproverRoleForLevel(3): {"requests.read", "requests.approve_level_3"},
}

// SeedRoles creates the built-in roles and permissions if absent. Idempotent,
// safe to run at every startup. The admin role receives every permission.
func SeedRoles(db *gorm.DB) error {
	perms := make(map[string]model.Permission, len(defaultPermissions))
	allCodes := make([]string, 0, len(defaultPermissions))
	for _, sp := range defaultPermissions {
		p := model.Permission{Code: sp.Code, Name: sp.Name, Group: sp.Group}
		if err := db.Where("code = ?", sp.Code).FirstOrCreate(&p).Error; err != nil {
			return err
		}
		perms[sp.Code] = p
		allCodes = append(allCodes, sp.Code)
	}

	assign := func(roleName string, codes []string) error {
		role := model.Role{Name: roleName, IsSystem: true}
		if err := db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
			return err
		}
		rolePerms := make([]model.Permission, 0, len(codes))
		for _, code := range codes {
			rolePerms = append(rolePerms, perms[code])
		}
		return db.Model(&role).Association("Permissions").Replace(rolePerms)
	}

	if err := assign(model.RoleAdmin, allCodes); err != nil {
		return err
	}
	for roleName, codes := range rolePermissions {
		if err := assign(roleName, codes); err != nil {
			return err
		}
	}

	log.Println("Seeded built-in roles and permissions")
	return nil
}
