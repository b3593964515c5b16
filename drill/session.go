package drill

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"drills-server/models"
	"drills-server/utils"
)

// Service runs the drill session lifecycle, answer scoring and KPI aggregation on top of a Store.
type Service struct {
	store         Store
	now           func() time.Time
	loc           *time.Location
	revealAnswers bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the calendar used for day boundaries in KPIs.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRevealAnswers includes the correct index and explanation in next-item payloads.
func WithRevealAnswers(reveal bool) Option {
	return func(s *Service) { s.revealAnswers = reveal }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession samples length unseen questions and persists the session with its items.
func (s *Service) CreateSession(ctx context.Context, userID, selector string, length int) (string, error) {
	if userID == "" {
		return "", ErrUnauthorized
	}
	if length < MinLength || length > MaxLength {
		return "", ErrInvalidLength
	}
	subjectID, subject, err := ParseSubjectSelector(selector)
	if err != nil {
		return "", err
	}

	questionIDs, err := s.sample(ctx, userID, subjectID, length)
	if err != nil {
		return "", err
	}

	session := models.DrillSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Subject:   subject,
		Total:     length,
		StartedAt: s.now(),
	}
	if err := s.store.CreateSession(ctx, session, questionIDs); err != nil {
		return "", fmt.Errorf("failed to create drill session: %w", err)
	}
	log.Printf("Drill session %s created for user %s (subject %s, %d questions)", session.ID, userID, subject, length)
	return session.ID, nil
}

// NextItem returns the first unanswered item of the session, or the summary once every item
// is answered. The first call that finds no unanswered item finalizes the session.
func (s *Service) NextItem(ctx context.Context, sessionID, userID string) (*models.NextItemResponse, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	session, err := s.store.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, translate(err)
	}

	item, err := s.store.NextUnansweredItem(ctx, sessionID)
	switch {
	case errors.Is(translate(err), ErrNotFound):
		summary, err := s.finish(ctx, session)
		if err != nil {
			return nil, err
		}
		return &models.NextItemResponse{Done: true, Summary: summary}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load next item: %w", err)
	}

	question, err := s.store.GetQuestion(ctx, item.QuestionID)
	if err != nil {
		return nil, translate(err)
	}
	return &models.NextItemResponse{
		Progress: &models.Progress{Index: item.OrderIndex, Total: session.Total},
		Question: s.questionPayload(question, item.OrderIndex),
	}, nil
}

func (s *Service) questionPayload(q *models.Question, orderIndex int) *models.QuestionPayload {
	payload := &models.QuestionPayload{
		ID:         q.ID,
		OrderIndex: orderIndex,
		Stem:       q.Stem,
		Topic:      q.Topic,
		Options:    make([]models.ChoicePayload, 0, len(q.Choices)),
	}
	for _, c := range q.Choices {
		option := models.ChoicePayload{Label: c.Label, Text: c.Text}
		if s.revealAnswers {
			option.Rationale = c.Rationale
		}
		payload.Options = append(payload.Options, option)
	}
	if s.revealAnswers {
		correct := q.AnswerIndex
		payload.CorrectIndex = &correct
		payload.Explanation = q.Rationale
		payload.Source = q.Source()
	}
	return payload
}

// finish summarizes a fully answered session and finalizes it if nobody has yet.
func (s *Service) finish(ctx context.Context, session *models.DrillSession) (*models.SessionSummary, error) {
	totals, err := s.store.ItemTotals(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize session: %w", err)
	}

	totalSec := float64(totals.ElapsedMsSum) / 1000
	summary := &models.SessionSummary{
		Total:        totals.Total,
		Correct:      totals.Correct,
		TotalTimeSec: utils.Round2(totalSec),
	}
	if totals.ElapsedMsRows > 0 {
		summary.AvgTimeSec = utils.Round2(totalSec / float64(totals.ElapsedMsRows))
	}

	if session.FinishedAt == nil {
		durationSec := int(math.Round(totalSec))
		finalized, err := s.store.FinalizeSession(ctx, session.ID, s.now(), durationSec, totals.Correct)
		if err != nil {
			return nil, fmt.Errorf("failed to finalize session: %w", err)
		}
		if finalized {
			log.Printf("Drill session %s finished: %d/%d correct in %ds", session.ID, totals.Correct, totals.Total, durationSec)
		}
	}
	return summary, nil
}
