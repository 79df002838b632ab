package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	StatusQueued     ApplicationStatus = "queued"
	StatusProcessing ApplicationStatus = "processing"
	StatusCompleted  ApplicationStatus = "completed"
	StatusFailed     ApplicationStatus = "failed"
)

type InterviewStatus string

const (
	InterviewNotStarted InterviewStatus = "not_started"
	InterviewCompleted  InterviewStatus = "completed"
)

// Application is one candidate submission against one job. Evaluation fields
// are written once by the pipeline worker; interview fields are written once
// by the voice interview session.
type Application struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	JobID          uuid.UUID `gorm:"type:uuid;not null" json:"job_id"`
	CandidateName  string    `gorm:"type:text" json:"candidate_name"`
	CandidateEmail string    `gorm:"type:text" json:"candidate_email"`

	ResumeFileName string            `gorm:"type:text" json:"resume_file_name"`
	ResumePath     string            `gorm:"type:text" json:"-"`
	ResumeText     string            `gorm:"type:text" json:"-"`
	Status         ApplicationStatus `gorm:"not null;default:'queued'" json:"status"`

	ExtractedData      *CandidateProfile `gorm:"type:jsonb" json:"extracted_data,omitempty"`
	ResumeQualityScore *int              `gorm:"type:int" json:"resume_quality_score,omitempty"`
	JobMatchScore      *int              `gorm:"type:int" json:"job_match_score,omitempty"`
	Analysis           *Analysis         `gorm:"type:jsonb" json:"analysis,omitempty"`
	InterviewEligible  bool              `gorm:"default:false" json:"interview_eligible"`

	InterviewStatus InterviewStatus `gorm:"not null;default:'not_started'" json:"interview_status"`
	InterviewScore  *int            `gorm:"type:int" json:"interview_score,omitempty"`
	InterviewData   *InterviewData  `gorm:"type:jsonb" json:"interview_data,omitempty"`

	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Job Job `gorm:"foreignKey:JobID" json:"-"`
}

func (Application) TableName() string {
	return "applications"
}

// AnswerAnalysis holds the per-metric scores for one interview answer. Every
// metric is clamped into [0,100] at the parsing boundary.
type AnswerAnalysis struct {
	Relevance      int    `json:"relevance"`
	Clarity        int    `json:"clarity"`
	TechnicalDepth int    `json:"technical_depth"`
	Communication  int    `json:"communication"`
	Feedback       string `json:"feedback"`
}

// AnswerRecord is one captured interview answer plus its analysis. Records
// are appended strictly in question order, at most one per question.
type AnswerRecord struct {
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Analysis  AnswerAnalysis `json:"analysis"`
	Timestamp time.Time      `json:"timestamp"`
}

// InterviewData is the persisted transcript of one completed session.
type InterviewData struct {
	Questions       []string       `json:"questions"`
	Answers         []AnswerRecord `json:"answers"`
	CompletedAt     time.Time      `json:"completed_at"`
	DurationSeconds int            `json:"duration_seconds"`
}

func (d InterviewData) Value() (driver.Value, error) {
	return jsonValue(d)
}

func (d *InterviewData) Scan(src interface{}) error {
	return jsonScan(src, d)
}
