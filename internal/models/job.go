package models

import (
	"time"

	"github.com/google/uuid"
)

// Job is the posting a candidate applies against. It is read-only for the
// duration of one evaluation or interview run.
type Job struct {
	ID          uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title       string      `gorm:"type:text;not null" json:"title"`
	Company     string      `gorm:"type:text" json:"company"`
	Description string      `gorm:"type:text" json:"description"`
	Skills      StringSlice `gorm:"type:jsonb" json:"skills"`
	Experience  string      `gorm:"type:text" json:"experience"`
	Location    string      `gorm:"type:text" json:"location"`
	Salary      string      `gorm:"type:text" json:"salary"`
	CreatedAt   time.Time   `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
