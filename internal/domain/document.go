package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// DocumentStatus represents the indexing status of a document record.
type DocumentStatus string

const (
	DocumentStatusIndexed    DocumentStatus = "indexed"
	DocumentStatusIncomplete DocumentStatus = "indexing_incomplete"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Vector stores a dense embedding as JSON in the database.
// Question embeddings live in the primary datastore rather than the vector
// index because dedup compares against every question in a unit anyway.
type Vector []float32

// Value implements the driver.Valuer interface for database serialization.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Vector")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, v)
}

// Document is the registry record for an ingested study document (lecture
// notes or past paper). The chunk text and vectors live in the vector
// index; this row is only visible once indexing has succeeded.
type Document struct {
	ID          string         `gorm:"type:text;primaryKey" json:"id"`
	Title       string         `gorm:"type:text;not null" json:"title"`
	UnitID      string         `gorm:"type:text;index:idx_documents_unit" json:"unit_id,omitempty"`
	FacultyCode string         `gorm:"type:text;index:idx_documents_faculty" json:"faculty_code,omitempty"`
	Type        string         `gorm:"type:text;index:idx_documents_type;default:notes" json:"type"`
	PageCount   int            `json:"page_count"`
	ChunkCount  int            `json:"chunk_count"`
	StorageKey  string         `gorm:"type:text" json:"storage_key"`
	FileSize    int64          `json:"file_size"`
	SHA256      string         `gorm:"column:sha256;index:idx_documents_sha" json:"sha256"`
	Topics      StringArray    `gorm:"type:text" json:"topics"`
	Status      DocumentStatus `gorm:"type:text;index:idx_documents_status;default:indexed" json:"status"`
	CreatedBy   string         `gorm:"type:text" json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string {
	return "documents"
}

// Document types stored in chunk payloads and used as search filters.
const (
	DocTypeNotes     = "notes"
	DocTypePastPaper = "pastpaper"
)
