package persistence

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// JSON stores a raw JSON document in a text/json column.
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("persistence: cannot scan %T into JSON", value)
	}
	return nil
}

// userRow is the users table. Uniqueness is always scoped to the tenant:
// the same resource id or userName may exist under two different tenants.
type userRow struct {
	ID          uint   `gorm:"primaryKey"`
	ResourceID  string `gorm:"size:64;uniqueIndex:uq_users_tenant_resource,priority:2"`
	TenantID    string `gorm:"size:64;index;uniqueIndex:uq_users_tenant_resource,priority:1;uniqueIndex:uq_users_tenant_username,priority:1"`
	UserName    string `gorm:"size:255;uniqueIndex:uq_users_tenant_username,priority:2"`
	DisplayName string `gorm:"size:255"`
	GivenName   string `gorm:"size:255"`
	FamilyName  string `gorm:"size:255"`
	Email       string `gorm:"size:255"`
	ExternalID  string `gorm:"size:255"`
	Active      bool   `gorm:"default:true"`
	Document    JSON   `gorm:"type:json"`
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (userRow) TableName() string { return "users" }

type groupRow struct {
	ID          uint   `gorm:"primaryKey"`
	ResourceID  string `gorm:"size:64;uniqueIndex:uq_groups_tenant_resource,priority:2"`
	TenantID    string `gorm:"size:64;index;uniqueIndex:uq_groups_tenant_resource,priority:1;uniqueIndex:uq_groups_tenant_name,priority:1"`
	DisplayName string `gorm:"size:255;uniqueIndex:uq_groups_tenant_name,priority:2"`
	Description string `gorm:"size:1024"`
	ExternalID  string `gorm:"size:255"`
	Document    JSON   `gorm:"type:json"`
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (groupRow) TableName() string { return "groups" }

type entitlementRow struct {
	ID          uint   `gorm:"primaryKey"`
	ResourceID  string `gorm:"size:64;uniqueIndex:uq_entitlements_tenant_resource,priority:2"`
	TenantID    string `gorm:"size:64;index;uniqueIndex:uq_entitlements_tenant_resource,priority:1;uniqueIndex:uq_entitlements_tenant_name,priority:1"`
	DisplayName string `gorm:"size:255;uniqueIndex:uq_entitlements_tenant_name,priority:2"`
	Type        string `gorm:"size:255"`
	Description string `gorm:"size:1024"`
	ExternalID  string `gorm:"size:255"`
	Document    JSON   `gorm:"type:json"`
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (entitlementRow) TableName() string { return "entitlements" }

type roleRow struct {
	ID          uint   `gorm:"primaryKey"`
	ResourceID  string `gorm:"size:64;uniqueIndex:uq_roles_tenant_resource,priority:2"`
	TenantID    string `gorm:"size:64;index;uniqueIndex:uq_roles_tenant_resource,priority:1;uniqueIndex:uq_roles_tenant_name,priority:1"`
	DisplayName string `gorm:"size:255;uniqueIndex:uq_roles_tenant_name,priority:2"`
	Description string `gorm:"size:1024"`
	ExternalID  string `gorm:"size:255"`
	Document    JSON   `gorm:"type:json"`
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (roleRow) TableName() string { return "roles" }

// Relationship tables link resources by internal key. The tenant id is
// duplicated onto each link so lookups never cross tenants.

type groupMemberRow struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  string `gorm:"size:64;index;uniqueIndex:uq_group_members,priority:1"`
	OwnerID   uint   `gorm:"uniqueIndex:uq_group_members,priority:2"`
	RelatedID uint   `gorm:"uniqueIndex:uq_group_members,priority:3"`
}

func (groupMemberRow) TableName() string { return "group_members" }

type userEntitlementRow struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  string `gorm:"size:64;index;uniqueIndex:uq_user_entitlements,priority:1"`
	OwnerID   uint   `gorm:"uniqueIndex:uq_user_entitlements,priority:2"`
	RelatedID uint   `gorm:"uniqueIndex:uq_user_entitlements,priority:3"`
}

func (userEntitlementRow) TableName() string { return "user_entitlements" }

type userRoleRow struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  string `gorm:"size:64;index;uniqueIndex:uq_user_roles,priority:1"`
	OwnerID   uint   `gorm:"uniqueIndex:uq_user_roles,priority:2"`
	RelatedID uint   `gorm:"uniqueIndex:uq_user_roles,priority:3"`
}

func (userRoleRow) TableName() string { return "user_roles" }
