package service

import (
	"context"
	"fmt"

	domain "kardex-ingest/internal/domain/kardex"
)

// TranscriptQueryService serves read access to ingested kardex data
type TranscriptQueryService struct {
	store domain.Store
}

func NewTranscriptQueryService(store domain.Store) *TranscriptQueryService {
	return &TranscriptQueryService{
		store: store,
	}
}

// GetStudentTranscript returns a student and their transcript entries by
// enrollment id. The student is nil when no such enrollment exists.
func (s *TranscriptQueryService) GetStudentTranscript(ctx context.Context, enrollmentID string) (*domain.Student, []*domain.TranscriptEntry, error) {
	student, err := s.store.Students().GetByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up student %q: %w", enrollmentID, err)
	}
	if student == nil {
		return nil, nil, nil
	}

	entries, err := s.store.Transcripts().GetByStudentID(ctx, student.StudentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transcript for %q: %w", enrollmentID, err)
	}
	return student, entries, nil
}
