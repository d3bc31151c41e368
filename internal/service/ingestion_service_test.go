package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domain "kardex-ingest/internal/domain/kardex"
	"kardex-ingest/internal/infrastructure/repository"

	"github.com/google/uuid"
)

func samplePayload() *domain.Payload {
	return &domain.Payload{
		OK: true,
		Student: domain.PayloadStudent{
			Program:      "Ingeniería",
			PlanVersion:  "2021-A",
			EnrollmentID: "A001",
			FullName:     "Ana Maria Ruiz Torres",
			StatusCode:   "A",
		},
		Courses: []domain.PayloadCourse{
			{
				Credits:       "6",
				CourseCode:    "MAT101",
				CourseName:    "Cálculo",
				OrdinaryGrade: "9",
				PeriodCode:    "2301",
			},
		},
	}
}

func TestIngest_CreatesCatalogRows(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewIngestionService(store)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, samplePayload(), "kardex_a001.json")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	plans, periods, courses, students, entries := store.Counts()
	if plans != 1 || periods != 1 || courses != 1 || students != 1 || entries != 1 {
		t.Fatalf("Expected 1 row of each kind, got plans=%d periods=%d courses=%d students=%d entries=%d",
			plans, periods, courses, students, entries)
	}
	if result.EntriesCreated != 1 || result.EntriesSkipped != 0 {
		t.Errorf("Expected 1 created / 0 skipped, got %d / %d", result.EntriesCreated, result.EntriesSkipped)
	}

	plan, err := store.Plans().GetByVersion(ctx, "2021-A")
	if err != nil || plan == nil {
		t.Fatalf("Expected plan 2021-A to exist, got %v, %v", plan, err)
	}
	if plan.Name != "Ingeniería" {
		t.Errorf("Expected plan name Ingeniería, got %s", plan.Name)
	}
	if plan.PlanID != result.PlanID {
		t.Errorf("Result plan id does not match stored plan")
	}

	period, err := store.Periods().GetByLabel(ctx, "2023-1")
	if err != nil || period == nil {
		t.Fatalf("Expected period 2023-1 to exist, got %v, %v", period, err)
	}
	if period.Year != 2023 || period.Cycle != 1 {
		t.Errorf("Expected year 2023 cycle 1, got %d / %d", period.Year, period.Cycle)
	}

	course, err := store.Courses().GetByCode(ctx, "MAT101")
	if err != nil || course == nil {
		t.Fatalf("Expected course MAT101 to exist, got %v, %v", course, err)
	}
	if course.Credits != 6 {
		t.Errorf("Expected 6 credits, got %d", course.Credits)
	}
	if course.CourseType != domain.DefaultCourseType {
		t.Errorf("Expected course type %s, got %s", domain.DefaultCourseType, course.CourseType)
	}
	if course.PlanID != plan.PlanID {
		t.Errorf("Expected course owned by plan %s, got %s", plan.PlanID, course.PlanID)
	}

	student, err := store.Students().GetByEnrollmentID(ctx, "A001")
	if err != nil || student == nil {
		t.Fatalf("Expected student A001 to exist, got %v, %v", student, err)
	}
	if student.AcademicStatus != domain.StatusActive {
		t.Errorf("Expected status ACTIVE, got %s", student.AcademicStatus)
	}
	if student.GivenName != "Ana Maria" || student.PaternalSurname != "Ruiz" || student.MaternalSurname != "Torres" {
		t.Errorf("Unexpected name split: %q %q %q", student.GivenName, student.PaternalSurname, student.MaternalSurname)
	}
	if student.Email != "a001@"+StudentEmailDomain {
		t.Errorf("Unexpected derived email %s", student.Email)
	}
	if student.StudentID != result.StudentID {
		t.Errorf("Result student id does not match stored student")
	}

	entry, err := store.Transcripts().GetByTriple(ctx, student.StudentID, course.CourseID, period.PeriodID)
	if err != nil || entry == nil {
		t.Fatalf("Expected transcript entry, got %v, %v", entry, err)
	}
	if entry.Grade == nil || *entry.Grade != 9 {
		t.Errorf("Expected grade 9, got %v", entry.Grade)
	}
	if entry.Status != domain.GradeStatusOrdinary {
		t.Errorf("Expected status %s, got %s", domain.GradeStatusOrdinary, entry.Status)
	}
	if entry.RunningGPA != 0 || entry.TermGPA != 0 {
		t.Errorf("Expected placeholder GPA fields, got %f / %f", entry.RunningGPA, entry.TermGPA)
	}
	if entry.SourceFile == nil || *entry.SourceFile != "kardex_a001.json" {
		t.Errorf("Expected source file kardex_a001.json, got %v", entry.SourceFile)
	}
}

func TestIngest_Idempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewIngestionService(store)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, samplePayload(), "")
	if err != nil {
		t.Fatalf("First ingestion failed: %v", err)
	}

	second, err := svc.Ingest(ctx, samplePayload(), "")
	if err != nil {
		t.Fatalf("Second ingestion failed: %v", err)
	}

	plans, periods, courses, students, entries := store.Counts()
	if plans != 1 || periods != 1 || courses != 1 || students != 1 || entries != 1 {
		t.Fatalf("Re-ingestion created rows: plans=%d periods=%d courses=%d students=%d entries=%d",
			plans, periods, courses, students, entries)
	}
	if second.EntriesCreated != 0 || second.EntriesSkipped != 1 {
		t.Errorf("Expected 0 created / 1 skipped on re-ingestion, got %d / %d",
			second.EntriesCreated, second.EntriesSkipped)
	}
	if first.StudentID != second.StudentID || first.PlanID != second.PlanID {
		t.Errorf("Re-ingestion resolved different identities")
	}
}

func TestIngest_SharedPeriodAcrossItems(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewIngestionService(store)

	payload := samplePayload()
	payload.Courses = append(payload.Courses, domain.PayloadCourse{
		Credits:       "8",
		CourseCode:    "FIS102",
		CourseName:    "Física",
		OrdinaryGrade: "ACRED",
		PeriodCode:    "2301",
	}, domain.PayloadCourse{
		CourseCode:    "QUI103",
		CourseName:    "Química",
		OrdinaryGrade: "NP",
		PeriodCode:    "2302",
	})

	result, err := svc.Ingest(context.Background(), payload, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.EntriesCreated != 3 {
		t.Errorf("Expected 3 entries created, got %d", result.EntriesCreated)
	}

	_, periods, courses, _, entries := store.Counts()
	if periods != 2 {
		t.Errorf("Expected period 2023-1 to be reused, got %d periods", periods)
	}
	if courses != 3 || entries != 3 {
		t.Errorf("Expected 3 courses and 3 entries, got %d / %d", courses, entries)
	}

	ctx := context.Background()
	student, _ := store.Students().GetByEnrollmentID(ctx, "A001")
	fis, _ := store.Courses().GetByCode(ctx, "FIS102")
	period, _ := store.Periods().GetByLabel(ctx, "2023-1")
	entry, err := store.Transcripts().GetByTriple(ctx, student.StudentID, fis.CourseID, period.PeriodID)
	if err != nil || entry == nil {
		t.Fatalf("Expected FIS102 entry, got %v, %v", entry, err)
	}
	if entry.Grade != nil || entry.Status != domain.GradeStatusCredited {
		t.Errorf("Expected credited entry without grade, got (%v, %s)", entry.Grade, entry.Status)
	}

	qui, _ := store.Courses().GetByCode(ctx, "QUI103")
	if qui.Credits != 0 {
		t.Errorf("Expected unparseable credits to default to 0, got %d", qui.Credits)
	}
}

func TestIngest_InvalidPayload(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewIngestionService(store)

	payload := samplePayload()
	payload.OK = false

	_, err := svc.Ingest(context.Background(), payload, "")
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("Expected ErrInvalidPayload, got %v", err)
	}

	plans, periods, courses, students, entries := store.Counts()
	if plans+periods+courses+students+entries != 0 {
		t.Errorf("Expected untouched store, got plans=%d periods=%d courses=%d students=%d entries=%d",
			plans, periods, courses, students, entries)
	}
}

func TestIngest_MalformedPeriodCodeRollsBack(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewIngestionService(store)

	payload := samplePayload()
	payload.Courses = append(payload.Courses, domain.PayloadCourse{
		CourseCode: "FIS102",
		CourseName: "Física",
		PeriodCode: "9",
	})

	_, err := svc.Ingest(context.Background(), payload, "")
	if err == nil {
		t.Fatal("Expected error for malformed period code, got nil")
	}
	if !domain.IsMalformedCode(err) {
		t.Fatalf("Expected MalformedCodeError, got %v", err)
	}

	// The first line item succeeded before the failure; nothing of the
	// payload may survive the rollback.
	plans, periods, courses, students, entries := store.Counts()
	if plans+periods+courses+students+entries != 0 {
		t.Errorf("Expected full rollback, got plans=%d periods=%d courses=%d students=%d entries=%d",
			plans, periods, courses, students, entries)
	}
}

func TestIngest_NeverOverwritesExistingRows(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewIngestionService(store)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, samplePayload(), ""); err != nil {
		t.Fatalf("First ingestion failed: %v", err)
	}

	// Same natural keys, different descriptive fields: the existing rows win.
	payload := samplePayload()
	payload.Student.Program = "Otra Carrera"
	payload.Courses[0].CourseName = "Renamed"
	payload.Courses[0].Credits = "99"
	payload.Courses[0].OrdinaryGrade = "5"

	if _, err := svc.Ingest(ctx, payload, ""); err != nil {
		t.Fatalf("Second ingestion failed: %v", err)
	}

	plan, _ := store.Plans().GetByVersion(ctx, "2021-A")
	if plan.Name != "Ingeniería" {
		t.Errorf("Plan name was overwritten to %s", plan.Name)
	}
	course, _ := store.Courses().GetByCode(ctx, "MAT101")
	if course.CourseName != "Cálculo" || course.Credits != 6 {
		t.Errorf("Course fields were overwritten: %s / %d", course.CourseName, course.Credits)
	}
}

// courseRaceStore injects a concurrent winner into the first course create
// and mimics the SQL backend's transaction semantics: a duplicate-row
// report leaves the transaction usable, any other statement failure aborts
// it and every later statement fails.
type courseRaceStore struct {
	domain.Store
	winnerID uuid.UUID
	raced    *bool
	aborted  *bool
}

func (s *courseRaceStore) Courses() domain.CourseRepository {
	return &raceCourseRepo{inner: s.Store.Courses(), store: s}
}

func (s *courseRaceStore) InTransaction(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.Store.InTransaction(ctx, func(tx domain.Store) error {
		return fn(&courseRaceStore{Store: tx, winnerID: s.winnerID, raced: s.raced, aborted: s.aborted})
	})
}

type raceCourseRepo struct {
	inner domain.CourseRepository
	store *courseRaceStore
}

func (r *raceCourseRepo) Create(ctx context.Context, course *domain.Course) error {
	if *r.store.aborted {
		return errors.New("current transaction is aborted")
	}
	if !*r.store.raced {
		*r.store.raced = true
		winner := *course
		winner.CourseID = r.store.winnerID
		if err := r.inner.Create(ctx, &winner); err != nil {
			return err
		}
		return fmt.Errorf("%w: course %q already exists", domain.ErrDuplicateKey, course.CourseCode)
	}
	err := r.inner.Create(ctx, course)
	if err != nil && !errors.Is(err, domain.ErrDuplicateKey) {
		*r.store.aborted = true
	}
	return err
}

func (r *raceCourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	if *r.store.aborted {
		return nil, errors.New("current transaction is aborted")
	}
	return r.inner.GetByID(ctx, id)
}

func (r *raceCourseRepo) GetByCode(ctx context.Context, courseCode string) (*domain.Course, error) {
	if *r.store.aborted {
		return nil, errors.New("current transaction is aborted")
	}
	return r.inner.GetByCode(ctx, courseCode)
}

func TestIngest_RecoversWhenCourseCreateLosesRace(t *testing.T) {
	raced := false
	aborted := false
	mem := repository.NewMemoryStore()
	store := &courseRaceStore{Store: mem, winnerID: uuid.New(), raced: &raced, aborted: &aborted}
	svc := NewIngestionService(store)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, samplePayload(), "")
	if err != nil {
		t.Fatalf("Expected the lost race to be recovered, got %v", err)
	}
	if !raced {
		t.Fatal("Expected the course create to lose the race")
	}
	if aborted {
		t.Fatal("A statement failed inside the transaction")
	}

	_, _, courses, _, entries := mem.Counts()
	if courses != 1 || entries != 1 {
		t.Fatalf("Expected 1 course and 1 entry, got %d / %d", courses, entries)
	}

	course, err := store.Courses().GetByCode(ctx, "MAT101")
	if err != nil || course == nil {
		t.Fatalf("Expected course MAT101 to exist, got %v, %v", course, err)
	}
	if course.CourseID != store.winnerID {
		t.Errorf("Expected the concurrent winner's row to be reused, got %s", course.CourseID)
	}

	period, _ := store.Periods().GetByLabel(ctx, "2023-1")
	entry, err := store.Transcripts().GetByTriple(ctx, result.StudentID, store.winnerID, period.PeriodID)
	if err != nil || entry == nil {
		t.Fatalf("Expected the entry to reference the winner's course, got %v, %v", entry, err)
	}
}

// entryRaceStore commits a transcript entry for the same triple between
// the orchestrator's lookup and its insert.
type entryRaceStore struct {
	domain.Store
	raced *bool
}

func (s *entryRaceStore) Transcripts() domain.TranscriptRepository {
	return &raceTranscriptRepo{TranscriptRepository: s.Store.Transcripts(), raced: s.raced}
}

func (s *entryRaceStore) InTransaction(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.Store.InTransaction(ctx, func(tx domain.Store) error {
		return fn(&entryRaceStore{Store: tx, raced: s.raced})
	})
}

type raceTranscriptRepo struct {
	domain.TranscriptRepository
	raced *bool
}

func (r *raceTranscriptRepo) Create(ctx context.Context, entry *domain.TranscriptEntry) error {
	if !*r.raced {
		*r.raced = true
		winner := *entry
		winner.EntryID = uuid.New()
		if err := r.TranscriptRepository.Create(ctx, &winner); err != nil {
			return err
		}
		return fmt.Errorf("%w: transcript entry already exists", domain.ErrDuplicateKey)
	}
	return r.TranscriptRepository.Create(ctx, entry)
}

func TestIngest_CountsConcurrentDuplicateEntryAsSkipped(t *testing.T) {
	raced := false
	mem := repository.NewMemoryStore()
	store := &entryRaceStore{Store: mem, raced: &raced}
	svc := NewIngestionService(store)

	result, err := svc.Ingest(context.Background(), samplePayload(), "")
	if err != nil {
		t.Fatalf("Expected the concurrent duplicate to be tolerated, got %v", err)
	}
	if result.EntriesCreated != 0 || result.EntriesSkipped != 1 {
		t.Errorf("Expected 0 created / 1 skipped, got %d / %d", result.EntriesCreated, result.EntriesSkipped)
	}
	_, _, _, _, entries := mem.Counts()
	if entries != 1 {
		t.Errorf("Expected exactly 1 entry row, got %d", entries)
	}
}

func TestFindOrCreate_RecoversFromDuplicateKeyRace(t *testing.T) {
	winner := &domain.Course{CourseCode: "MAT101"}
	calls := 0

	got, err := findOrCreate(
		func() (*domain.Course, error) {
			calls++
			// First lookup misses; the re-read after the conflict hits the
			// row the concurrent writer created.
			if calls == 1 {
				return nil, nil
			}
			return winner, nil
		},
		func() (*domain.Course, error) {
			return nil, fmt.Errorf("%w: course code", domain.ErrDuplicateKey)
		},
	)
	if err != nil {
		t.Fatalf("Expected conflict recovery, got error %v", err)
	}
	if got != winner {
		t.Errorf("Expected the concurrently created row, got %v", got)
	}
}

func TestFindOrCreate_PropagatesOtherErrors(t *testing.T) {
	boom := errors.New("connection lost")

	_, err := findOrCreate(
		func() (*domain.Course, error) { return nil, nil },
		func() (*domain.Course, error) { return nil, boom },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected create error to propagate, got %v", err)
	}
}
