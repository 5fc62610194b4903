package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// QuestionSource identifies where a question came from.
const (
	QuestionSourceExam = "exam"
	QuestionSourceCAT  = "cat"
)

// SectionRef points at one indexed note chunk. The triple resolves against
// the vector index payloads and the document registry.
type SectionRef struct {
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	ChunkIndex int    `json:"chunk_index"`
}

// SectionRefs stores chunk references as JSON in the database.
type SectionRefs []SectionRef

// Value implements the driver.Valuer interface for database serialization.
func (r SectionRefs) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (r *SectionRefs) Scan(value interface{}) error {
	if value == nil {
		*r = SectionRefs{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan SectionRefs")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, r)
}

// Question is an exam question with its embedding and dedup bookkeeping.
// Questions that are semantically equivalent share a GroupID; Frequency
// counts how many times the question (or a near-duplicate) has appeared.
type Question struct {
	ID              string      `gorm:"type:text;primaryKey" json:"id"`
	Text            string      `gorm:"type:text;not null" json:"text"`
	UnitID          string      `gorm:"type:text;not null;index:idx_questions_unit" json:"unit_id"`
	SourceType      string      `gorm:"type:text" json:"source_type"`
	SourceID        string      `gorm:"type:text" json:"source_id"`
	Year            int         `json:"year,omitempty"`
	Embedding       Vector      `gorm:"type:text" json:"-"`
	GroupID         string      `gorm:"type:text;index:idx_questions_group" json:"group_id"`
	Frequency       int         `gorm:"default:1" json:"frequency"`
	RelatedSections SectionRefs `gorm:"type:text" json:"related_sections"`
	Difficulty      string      `gorm:"type:text" json:"difficulty,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Question.
func (Question) TableName() string {
	return "questions"
}
