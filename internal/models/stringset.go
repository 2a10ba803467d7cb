package models

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StringSet is a set of names stored as a native text[] column on Postgres
// and as the same array literal in a text column elsewhere.
type StringSet []string

// Value implements the driver.Valuer interface
func (s StringSet) Value() (driver.Value, error) {
	return pq.StringArray(s).Value()
}

// Scan implements the sql.Scanner interface
func (s *StringSet) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*s = StringSet(arr)
	return nil
}

// GormDBDataType picks the column type per dialect.
func (StringSet) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
