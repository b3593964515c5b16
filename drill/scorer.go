package drill

import (
	"context"
	"errors"
	"fmt"

	"drills-server/models"
	"drills-server/utils"
)

// SubmitAnswer records the answer for one still-unanswered slot and returns immediate feedback.
// A slot can be answered only once; later submissions fail with ErrNotFound and change nothing.
func (s *Service) SubmitAnswer(ctx context.Context, sub models.AnswerSubmission) (*models.AnswerResult, error) {
	if sub.UserID == "" {
		return nil, ErrUnauthorized
	}
	if _, err := s.store.GetSession(ctx, sub.SessionID, sub.UserID); err != nil {
		return nil, translate(err)
	}
	question, err := s.store.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		return nil, translate(err)
	}

	correct := sub.AnswerIndex == question.AnswerIndex
	score, err := s.store.AnswerItem(ctx, models.ItemAnswer{
		SessionID:  sub.SessionID,
		OrderIndex: sub.OrderIndex,
		QuestionID: sub.QuestionID,
		UserAnswer: sub.AnswerIndex,
		IsCorrect:  correct,
		ElapsedMs:  utils.MaxInt(0, sub.ElapsedMs), // client timings are not trusted below zero
		AnsweredAt: s.now(),
	})
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	return &models.AnswerResult{
		Correct:      correct,
		CorrectIndex: question.AnswerIndex,
		Explanation:  question.Rationale,
		Source:       question.Source(),
		Score:        score,
	}, nil
}
