package models

type ApplyResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Result       *EvaluationData `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}

type EvaluationData struct {
	ResumeQualityScore int               `json:"resume_quality_score"`
	JobMatchScore      int               `json:"job_match_score"`
	InterviewEligible  bool              `json:"interview_eligible"`
	ExtractedData      *CandidateProfile `json:"extracted_data"`
	Analysis           *Analysis         `json:"analysis"`
}

type TranscriptEventRequest struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type InterviewStatusResponse struct {
	State                string          `json:"state"`
	CurrentQuestionIndex int             `json:"current_question_index"`
	QuestionCount        int             `json:"question_count"`
	CurrentQuestion      string          `json:"current_question,omitempty"`
	RemainingSeconds     int             `json:"remaining_seconds"`
	IsSpeaking           bool            `json:"is_speaking"`
	IsRecording          bool            `json:"is_recording"`
	IsAnalyzing          bool            `json:"is_analyzing"`
	AnswersRecorded      int             `json:"answers_recorded"`
	LastAnalysis         *AnswerAnalysis `json:"last_analysis,omitempty"`
	FinalScore           *int            `json:"final_score,omitempty"`
}

type SimilarCandidateResponse struct {
	ApplicationID string  `json:"application_id"`
	Score         float32 `json:"score"`
	Snippet       string  `json:"snippet"`
}
