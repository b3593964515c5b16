package drill

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"drills-server/models"
)

const (
	MinLength = 1
	MaxLength = 200

	// AllSubjects is the selector that disables the subject filter.
	AllSubjects     = "ALL"
	allSubjectsName = "ALL Subjects"
)

// ParseSubjectSelector resolves a selector to an optional subject filter and the canonical
// text stored on the session.
func ParseSubjectSelector(raw string) (*int, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, AllSubjects) {
		return nil, AllSubjects, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return nil, "", fmt.Errorf("%w: got %q", ErrInvalidSubject, raw)
	}
	return &id, strconv.Itoa(id), nil
}

// sample draws length unseen, active question ids for the user.
func (s *Service) sample(ctx context.Context, userID string, subjectID *int, length int) ([]int, error) {
	seen, err := s.store.SeenQuestionIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen questions: %w", err)
	}

	ids, err := s.store.SampleQuestionIDs(ctx, models.QuestionFilter{
		SubjectID:  subjectID,
		ExcludeIDs: seen,
		Limit:      length,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}
	if len(ids) < length {
		return nil, &InsufficientPoolError{Requested: length, Available: len(ids)}
	}
	return ids, nil
}

// Subjects lists the subject picker entries, the synthetic ALL entry first.
func (s *Service) Subjects(ctx context.Context) ([]models.SubjectOption, error) {
	subjects, err := s.store.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	options := make([]models.SubjectOption, 0, len(subjects)+1)
	options = append(options, models.SubjectOption{ID: AllSubjects, Name: allSubjectsName})
	for _, subject := range subjects {
		options = append(options, models.SubjectOption{ID: strconv.Itoa(subject.ID), Name: subject.Name})
	}
	return options, nil
}
