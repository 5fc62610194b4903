package domain

import "time"

// Unit is a course unit. Unit CRUD is owned elsewhere; the pipeline only
// reads units to validate scoping and to tag chunk payloads.
type Unit struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Code        string    `gorm:"type:text;index:idx_units_code" json:"code"`
	FacultyCode string    `gorm:"type:text;index:idx_units_faculty" json:"faculty_code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Unit.
func (Unit) TableName() string {
	return "units"
}
