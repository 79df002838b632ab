package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CandidateProfile is the structured representation of a resume extracted
// from free text. Every slice field is kept non-nil so scoring and templating
// never have to branch on absence.
type CandidateProfile struct {
	PersonalInfo PersonalInfo      `json:"personalInfo"`
	Summary      string            `json:"summary"`
	Skills       []string          `json:"skills"`
	Experience   []ExperienceEntry `json:"experience"`
	Education    []EducationEntry  `json:"education"`
	Projects     []ProjectEntry    `json:"projects"`
}

type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type ExperienceEntry struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	Duration     string   `json:"duration"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
}

type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Duration    string `json:"duration"`
	Details     string `json:"details"`
}

type ProjectEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	URL          string   `json:"url"`
}

// Normalize backfills nil slices with empty ones, including the nested
// technology lists, so a partially-shaped profile never leaves this package.
func (p *CandidateProfile) Normalize() {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Experience == nil {
		p.Experience = []ExperienceEntry{}
	}
	if p.Education == nil {
		p.Education = []EducationEntry{}
	}
	if p.Projects == nil {
		p.Projects = []ProjectEntry{}
	}
	for i := range p.Experience {
		if p.Experience[i].Technologies == nil {
			p.Experience[i].Technologies = []string{}
		}
	}
	for i := range p.Projects {
		if p.Projects[i].Technologies == nil {
			p.Projects[i].Technologies = []string{}
		}
	}
}

// NewCandidateProfile returns an empty, fully-shaped profile.
func NewCandidateProfile() *CandidateProfile {
	p := &CandidateProfile{}
	p.Normalize()
	return p
}

func (p CandidateProfile) Value() (driver.Value, error) {
	return jsonValue(p)
}

func (p *CandidateProfile) Scan(src interface{}) error {
	if err := jsonScan(src, p); err != nil {
		return err
	}
	p.Normalize()
	return nil
}

// Analysis holds the local, non-AI strengths/weaknesses summary attached to
// an evaluated application.
type Analysis struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

func (a Analysis) Value() (driver.Value, error) {
	return jsonValue(a)
}

func (a *Analysis) Scan(src interface{}) error {
	return jsonScan(src, a)
}

// StringSlice is a jsonb-backed string list column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		s = StringSlice{}
	}
	return jsonValue(s)
}

func (s *StringSlice) Scan(src interface{}) error {
	return jsonScan(src, s)
}

func jsonValue(v interface{}) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb value: %w", err)
	}
	return data, nil
}

func jsonScan(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
