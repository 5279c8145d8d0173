package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Dialect constants for database type detection
const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

// Permission is a capability a user holds within one collaboration session
type Permission string

const (
	PermissionRead  Permission = "READ"
	PermissionEdit  Permission = "EDIT"
	PermissionAdmin Permission = "ADMIN"
)

// ParsePermission validates a wire value
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PermissionRead, PermissionEdit, PermissionAdmin:
		return p, nil
	default:
		return "", fmt.Errorf("invalid permission: %q", s)
	}
}

// PermissionSet is stored as a JSON array, e.g. ["READ","EDIT"]
type PermissionSet []Permission

// NewPermissionSet builds a set without duplicates, preserving first-seen order
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, 0, len(perms))
	for _, p := range perms {
		if !slices.Contains(set, p) {
			set = append(set, p)
		}
	}
	return set
}

// Has reports whether p is in the set
func (s PermissionSet) Has(p Permission) bool {
	return slices.Contains(s, p)
}

// Intersects reports whether any of required is held; permissions are not ranked
func (s PermissionSet) Intersects(required ...Permission) bool {
	return slices.ContainsFunc(required, s.Has)
}

// WithRead returns READ merged with perm
func WithRead(perm Permission) PermissionSet {
	return NewPermissionSet(PermissionRead, perm)
}

// GormDBDataType returns dialect-specific column types for cross-database compatibility
func (PermissionSet) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Name() {
	case dialectPostgres, dialectSQLite:
		return "TEXT"
	default:
		return "TEXT"
	}
}

// Value implements the driver.Valuer interface for database writes
func (s PermissionSet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface for database reads
func (s *PermissionSet) Scan(value any) error {
	if value == nil {
		*s = PermissionSet{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into PermissionSet", value)
	}

	if len(bytes) == 0 {
		*s = PermissionSet{}
		return nil
	}

	var perms []Permission
	if err := json.Unmarshal(bytes, &perms); err != nil {
		return fmt.Errorf("failed to unmarshal PermissionSet: %w", err)
	}
	*s = NewPermissionSet(perms...)
	return nil
}
