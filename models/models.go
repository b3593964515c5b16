package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Subject is static reference data grouping questions.
type Subject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SubjectOption is an entry of the subject picker. ID is a drill subject selector:
// "ALL" or a subject id rendered as text.
type SubjectOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Question struct represents a multiple-choice question
type Question struct {
	ID          int       `json:"id"`
	SubjectID   int       `json:"subject_id"`
	Stem        string    `json:"stem"`
	Topic       string    `json:"topic"`
	AnswerIndex int       `json:"answer_index"` // Position of the correct choice, 0-based
	Rationale   string    `json:"rationale"`
	SourceRefs  []string  `json:"source_refs"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	Choices     []Choice  `json:"choices,omitempty"`
}

// Source flattens the question's source references into a single display string.
func (q Question) Source() string {
	return strings.Join(q.SourceRefs, "; ")
}

// Choice struct represents an answer choice, ordered by label within its question.
type Choice struct {
	QuestionID int    `json:"question_id"`
	Label      string `json:"label"`
	Text       string `json:"text"`
	Rationale  string `json:"rationale"`
}

// DrillSession is one timed run of N questions for a user.
type DrillSession struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Subject     string     `json:"subject"` // Selector as text: "ALL" or a subject id
	Total       int        `json:"total"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"` // Pointer to allow NULL
	DurationSec int        `json:"duration_sec"`
	Score       int        `json:"score"`
}

// DrillItem is one question slot within a session.
type DrillItem struct {
	SessionID  string     `json:"session_id"`
	OrderIndex int        `json:"order_index"`
	QuestionID int        `json:"question_id"`
	UserAnswer *int       `json:"user_answer"`
	IsCorrect  *bool      `json:"is_correct"`
	AnsweredAt *time.Time `json:"answered_at"`
	ElapsedMs  *int       `json:"elapsed_ms"`
}

// Answered reports whether the item has transitioned to the answered state.
func (i DrillItem) Answered() bool {
	return i.AnsweredAt != nil
}

// QuestionFilter describes the eligible pool for sampling. Only active questions are eligible.
type QuestionFilter struct {
	SubjectID  *int  // nil means every subject
	ExcludeIDs []int // questions the user has already been served
	Limit      int
}

// ItemAnswer is the store-level write for one answered slot.
type ItemAnswer struct {
	SessionID  string
	OrderIndex int
	QuestionID int
	UserAnswer int
	IsCorrect  bool
	ElapsedMs  int
	AnsweredAt time.Time
}

// ItemTotals aggregates a session's items.
type ItemTotals struct {
	Total         int
	Correct       int
	ElapsedMsSum  int64
	ElapsedMsRows int // Items with a recorded elapsed_ms
}

// AnswerStats counts answered items in a window.
type AnswerStats struct {
	Attempted int
	Correct   int
}

// SubjectSelector accepts either a JSON string or a JSON number for the drill subject.
type SubjectSelector string

// UnmarshalJSON implements json.Unmarshaler.
func (s *SubjectSelector) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = SubjectSelector(strings.TrimSpace(str))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("subject must be a string or a number: %w", err)
	}
	n, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return fmt.Errorf("subject must be an integer: %w", err)
	}
	*s = SubjectSelector(strconv.FormatInt(n, 10))
	return nil
}

// CreateSessionRequest for starting a drill
type CreateSessionRequest struct {
	Subject SubjectSelector `json:"subject"`
	Length  int             `json:"length"`
}

// CreateSessionResponse for starting a drill
type CreateSessionResponse struct {
	SessionID string `json:"sid"`
}

// AnswerRequest for submitting an answer
type AnswerRequest struct {
	QuestionID  int `json:"questionId" binding:"required"`
	OrderIndex  int `json:"orderIndex" binding:"required,min=1"`
	AnswerIndex int `json:"answerIndex" binding:"min=0"`
	ElapsedMs   int `json:"elapsedMs"`
}

// AnswerSubmission is the service-level input of the scorer.
type AnswerSubmission struct {
	SessionID   string
	UserID      string
	QuestionID  int
	OrderIndex  int
	AnswerIndex int
	ElapsedMs   int
}

// AnswerResult gives immediate feedback after a submission
type AnswerResult struct {
	Correct      bool   `json:"correct"`
	CorrectIndex int    `json:"correctIndex"`
	Explanation  string `json:"explanation"`
	Source       string `json:"source"`
	Score        int    `json:"score"`
}

// Progress locates an item within its session.
type Progress struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

// ChoicePayload is a choice as delivered to the client.
type ChoicePayload struct {
	Label     string `json:"label"`
	Text      string `json:"text"`
	Rationale string `json:"rationale,omitempty"`
}

// QuestionPayload is a question as delivered to the client. CorrectIndex, Explanation and
// Source are only populated when answers are revealed before submission.
type QuestionPayload struct {
	ID           int             `json:"id"`
	OrderIndex   int             `json:"orderIndex"`
	Stem         string          `json:"stem"`
	Topic        string          `json:"topic"`
	Options      []ChoicePayload `json:"options"`
	CorrectIndex *int            `json:"correctIndex,omitempty"`
	Explanation  string          `json:"explanation,omitempty"`
	Source       string          `json:"source,omitempty"`
}

// SessionSummary is returned once every item of a session is answered.
type SessionSummary struct {
	Total        int     `json:"total"`
	Correct      int     `json:"correct"`
	TotalTimeSec float64 `json:"totalTimeSec"`
	AvgTimeSec   float64 `json:"avgTimeSec"`
}

// NextItemResponse is either the next question or the final summary.
type NextItemResponse struct {
	Done     bool             `json:"done"`
	Progress *Progress        `json:"progress,omitempty"`
	Question *QuestionPayload `json:"question,omitempty"`
	Summary  *SessionSummary  `json:"summary,omitempty"`
}

// WeeklyGoal pairs the trailing-week attempt count with the display target.
type WeeklyGoal struct {
	Attempted int `json:"attempted"`
	Goal      int `json:"goal"`
}

// KPIs is the dashboard payload.
type KPIs struct {
	MCQsToday  int        `json:"mcqsToday"`
	WeeklyGoal WeeklyGoal `json:"weeklyGoal"`
	Accuracy7d *int       `json:"accuracy7d"` // nil when nothing was attempted
	StreakDays int        `json:"streakDays"`
}

// SubjectStats for the admin subjects listing
type SubjectStats struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	ActiveQuestions int    `json:"active_questions"`
	TotalQuestions  int    `json:"total_questions"`
}

// QuestionStats reports how a question performs across all drills
type QuestionStats struct {
	QuestionID     int    `json:"question_id"`
	Subject        string `json:"subject"`
	Topic          string `json:"topic"`
	Stem           string `json:"stem"`
	IsActive       bool   `json:"is_active"`
	TimesAttempted int    `json:"times_attempted"`
	CorrectCount   int    `json:"correct_count"`
	Accuracy       *int   `json:"accuracy"` // nil until attempted
}

// AdminTotals for the admin dashboard
type AdminTotals struct {
	Subjects         int `json:"subjects"`
	ActiveQuestions  int `json:"active_questions"`
	Sessions         int `json:"sessions"`
	FinishedSessions int `json:"finished_sessions"`
}

// QuestionActiveRequest toggles a question in or out of the eligible pool
type QuestionActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ErrorLog represents an entry in the error_logs table
type ErrorLog struct {
	ID           int       `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"`
	Subject      string    `json:"subject"`
	FilePath     *string   `json:"file_path"`
	LineNumber   *int      `json:"line_number"`
	FieldName    *string   `json:"field_name"`
	ErrorMessage string    `json:"error_message"`
	SuggestedFix *string   `json:"suggested_fix"`
}

// AdminEvent represents an entry in the admin_events table
type AdminEvent struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Target    string    `json:"target"`
	Notes     string    `json:"notes"`
}

// SubjectYAML for parsing subject.yaml in a bank directory
type SubjectYAML struct {
	Name string `yaml:"name" validate:"required"`
	Slug string `yaml:"slug" validate:"required"`
}

// QuestionRow for parsing questions.csv rows
type QuestionRow struct {
	Topic      string `validate:"required"`
	Stem       string `validate:"required"`
	Answer     string `validate:"required,len=1,oneof=A B C D E"`
	Rationale  string `validate:"required"`
	SourceRefs string
	Choices    []ChoiceRow `validate:"min=2,max=5,dive"`
}

// ChoiceRow is one labelled choice from a questions.csv row
type ChoiceRow struct {
	Label     string `validate:"required,len=1"`
	Text      string `validate:"required"`
	Rationale string
}
