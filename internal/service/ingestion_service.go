package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "kardex-ingest/internal/domain/kardex"
	"kardex-ingest/pkg/logger"

	"github.com/google/uuid"
)

// StudentEmailDomain is appended to the lowercased enrollment id to derive
// the placeholder email for students created during ingestion.
const StudentEmailDomain = "alumnos.edu.mx"

// IngestionService reconciles kardex payloads against the catalog: it
// resolves every referenced plan, period, course and student to an
// existing row or creates it, and inserts each transcript line item
// exactly once per (student, course, period).
type IngestionService struct {
	store domain.Store
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(store domain.Store) *IngestionService {
	return &IngestionService{
		store: store,
	}
}

// Ingest reconciles one kardex payload inside a single transaction.
// sourceFile, when non-empty, is recorded on the created transcript
// entries. A payload without a positive ok flag fails with
// ErrInvalidPayload before any transaction is opened; any mid-transaction
// failure rolls back every row the payload would have created.
func (s *IngestionService) Ingest(ctx context.Context, payload *domain.Payload, sourceFile string) (*domain.IngestResult, error) {
	if payload == nil || !payload.OK {
		return nil, domain.ErrInvalidPayload
	}

	logger.Info("Ingesting kardex for enrollment %s with %d line items",
		payload.Student.EnrollmentID, len(payload.Courses))

	result := &domain.IngestResult{}
	err := s.store.InTransaction(ctx, func(tx domain.Store) error {
		plan, err := resolvePlan(ctx, tx, payload.Student.PlanVersion, payload.Student.Program)
		if err != nil {
			return fmt.Errorf("resolving plan %q: %w", payload.Student.PlanVersion, err)
		}

		student, err := resolveStudent(ctx, tx, payload.Student, plan.PlanID)
		if err != nil {
			return fmt.Errorf("resolving student %q: %w", payload.Student.EnrollmentID, err)
		}

		// Line items run strictly in payload order so later items can
		// reuse periods and courses created by earlier ones.
		for _, item := range payload.Courses {
			period, err := resolvePeriod(ctx, tx, item.PeriodCode)
			if err != nil {
				return fmt.Errorf("resolving period for course %q: %w", item.CourseCode, err)
			}

			course, err := resolveCourse(ctx, tx, item, plan.PlanID)
			if err != nil {
				return fmt.Errorf("resolving course %q: %w", item.CourseCode, err)
			}

			existing, err := tx.Transcripts().GetByTriple(ctx, student.StudentID, course.CourseID, period.PeriodID)
			if err != nil {
				return fmt.Errorf("checking transcript entry for course %q: %w", item.CourseCode, err)
			}
			if existing != nil {
				result.EntriesSkipped++
				continue
			}

			grade, status := domain.DecodeGrade(item.OrdinaryGrade)
			entry := &domain.TranscriptEntry{
				EntryID:   uuid.New(),
				StudentID: student.StudentID,
				CourseID:  course.CourseID,
				PeriodID:  period.PeriodID,
				Grade:     grade,
				Status:    status,
			}
			if sourceFile != "" {
				entry.SourceFile = &sourceFile
			}
			if err := tx.Transcripts().Create(ctx, entry); err != nil {
				// A concurrent ingestion committed the same triple between
				// the lookup and the insert; the row exists, so this item
				// counts as skipped like any other pre-existing entry.
				if errors.Is(err, domain.ErrDuplicateKey) {
					result.EntriesSkipped++
					continue
				}
				return fmt.Errorf("creating transcript entry for course %q: %w", item.CourseCode, err)
			}
			result.EntriesCreated++
		}

		result.StudentID = student.StudentID
		result.PlanID = plan.PlanID
		return nil
	})
	if err != nil {
		logger.Error("Kardex ingestion failed for enrollment %s: %v", payload.Student.EnrollmentID, err)
		return nil, err
	}

	logger.Info("Kardex ingested for enrollment %s: %d entries created, %d skipped",
		payload.Student.EnrollmentID, result.EntriesCreated, result.EntriesSkipped)
	return result, nil
}

// findOrCreate is the single resolver shape shared by all catalog
// entities: look up by natural key, construct on absence. When the create
// loses a concurrent race on the uniqueness constraint it re-reads instead
// of failing, so the winner's row is used.
func findOrCreate[E any](find func() (*E, error), create func() (*E, error)) (*E, error) {
	existing, err := find()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := create()
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, domain.ErrDuplicateKey) {
		return nil, err
	}

	winner, findErr := find()
	if findErr != nil {
		return nil, findErr
	}
	if winner == nil {
		return nil, err
	}
	return winner, nil
}

func resolvePlan(ctx context.Context, tx domain.Store, version, program string) (*domain.StudyPlan, error) {
	return findOrCreate(
		func() (*domain.StudyPlan, error) { return tx.Plans().GetByVersion(ctx, version) },
		func() (*domain.StudyPlan, error) {
			name := strings.Join(strings.Fields(program), " ")
			if name == "" {
				name = "Plan " + version
			}
			plan := &domain.StudyPlan{
				PlanID:  uuid.New(),
				Version: version,
				Name:    name,
			}
			if err := tx.Plans().Create(ctx, plan); err != nil {
				return nil, err
			}
			return plan, nil
		},
	)
}

func resolvePeriod(ctx context.Context, tx domain.Store, periodCode string) (*domain.Period, error) {
	info, err := domain.DecodePeriodCode(periodCode)
	if err != nil {
		return nil, err
	}
	return findOrCreate(
		func() (*domain.Period, error) { return tx.Periods().GetByLabel(ctx, info.Label) },
		func() (*domain.Period, error) {
			period := &domain.Period{
				PeriodID:  uuid.New(),
				Year:      info.Year,
				Cycle:     info.Cycle,
				Label:     info.Label,
				StartDate: time.Date(info.Year, time.January, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(info.Year, time.December, 31, 0, 0, 0, 0, time.UTC),
			}
			if err := tx.Periods().Create(ctx, period); err != nil {
				return nil, err
			}
			return period, nil
		},
	)
}

func resolveCourse(ctx context.Context, tx domain.Store, item domain.PayloadCourse, planID uuid.UUID) (*domain.Course, error) {
	return findOrCreate(
		func() (*domain.Course, error) { return tx.Courses().GetByCode(ctx, item.CourseCode) },
		func() (*domain.Course, error) {
			// Malformed credit values default to 0 rather than failing the
			// whole payload; the catalog can be corrected later.
			credits, err := strconv.Atoi(strings.TrimSpace(item.Credits))
			if err != nil {
				credits = 0
			}
			course := &domain.Course{
				CourseID:   uuid.New(),
				CourseCode: item.CourseCode,
				CourseName: strings.Join(strings.Fields(item.CourseName), " "),
				Credits:    credits,
				CourseType: domain.DefaultCourseType,
				PlanID:     planID,
			}
			if err := tx.Courses().Create(ctx, course); err != nil {
				return nil, err
			}
			return course, nil
		},
	)
}

func resolveStudent(ctx context.Context, tx domain.Store, info domain.PayloadStudent, planID uuid.UUID) (*domain.Student, error) {
	return findOrCreate(
		func() (*domain.Student, error) { return tx.Students().GetByEnrollmentID(ctx, info.EnrollmentID) },
		func() (*domain.Student, error) {
			given, paternal, maternal := domain.SplitFullName(info.FullName)
			status := domain.StatusInactive
			if strings.EqualFold(strings.TrimSpace(info.StatusCode), "A") {
				status = domain.StatusActive
			}
			student := &domain.Student{
				StudentID:       uuid.New(),
				EnrollmentID:    info.EnrollmentID,
				GivenName:       given,
				PaternalSurname: paternal,
				MaternalSurname: maternal,
				Email:           strings.ToLower(info.EnrollmentID) + "@" + StudentEmailDomain,
				AcademicStatus:  status,
				PlanID:          planID,
			}
			if err := tx.Students().Create(ctx, student); err != nil {
				return nil, err
			}
			return student, nil
		},
	)
}
