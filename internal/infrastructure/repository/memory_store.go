package repository

import (
	"context"
	"sync"

	domain "kardex-ingest/internal/domain/kardex"

	"github.com/google/uuid"
)

var _ domain.Store = (*MemoryStore)(nil)

type tripleKey struct {
	studentID uuid.UUID
	courseID  uuid.UUID
	periodID  uuid.UUID
}

// MemoryStore is an in-memory implementation of the domain Store used by
// tests. It enforces the same natural-key uniqueness as the database and
// rolls a transaction's writes back on failure via map snapshots.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	plans    map[string]*domain.StudyPlan
	periods  map[string]*domain.Period
	courses  map[string]*domain.Course
	students map[string]*domain.Student
	entries  map[tripleKey]*domain.TranscriptEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plans:    make(map[string]*domain.StudyPlan),
		periods:  make(map[string]*domain.Period),
		courses:  make(map[string]*domain.Course),
		students: make(map[string]*domain.Student),
		entries:  make(map[tripleKey]*domain.TranscriptEntry),
	}
}

func (s *MemoryStore) Plans() domain.StudyPlanRepository { return &memPlanRepo{s} }

func (s *MemoryStore) Periods() domain.PeriodRepository { return &memPeriodRepo{s} }

func (s *MemoryStore) Courses() domain.CourseRepository { return &memCourseRepo{s} }

func (s *MemoryStore) Students() domain.StudentRepository { return &memStudentRepo{s} }

func (s *MemoryStore) Transcripts() domain.TranscriptRepository { return &memTranscriptRepo{s} }

// InTransaction serializes transactions and restores the pre-transaction
// state when fn fails, mimicking a database rollback.
func (s *MemoryStore) InTransaction(ctx context.Context, fn func(tx domain.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	plans := copyMap(s.plans)
	periods := copyMap(s.periods)
	courses := copyMap(s.courses)
	students := copyMap(s.students)
	entries := copyMap(s.entries)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.plans = plans
		s.periods = periods
		s.courses = courses
		s.students = students
		s.entries = entries
		s.mu.Unlock()
		return err
	}
	return nil
}

// Counts reports how many rows of each kind the store holds
func (s *MemoryStore) Counts() (plans, periods, courses, students, entries int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plans), len(s.periods), len(s.courses), len(s.students), len(s.entries)
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type memPlanRepo struct{ s *MemoryStore }

func (r *memPlanRepo) Create(ctx context.Context, plan *domain.StudyPlan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.plans[plan.Version]; exists {
		return errDuplicate("plan version", plan.Version)
	}
	if plan.PlanID == uuid.Nil {
		plan.PlanID = uuid.New()
	}
	r.s.plans[plan.Version] = plan
	return nil
}

func (r *memPlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudyPlan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, plan := range r.s.plans {
		if plan.PlanID == id {
			return plan, nil
		}
	}
	return nil, nil
}

func (r *memPlanRepo) GetByVersion(ctx context.Context, version string) (*domain.StudyPlan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.plans[version], nil
}

type memPeriodRepo struct{ s *MemoryStore }

func (r *memPeriodRepo) Create(ctx context.Context, period *domain.Period) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.periods[period.Label]; exists {
		return errDuplicate("period label", period.Label)
	}
	if period.PeriodID == uuid.Nil {
		period.PeriodID = uuid.New()
	}
	r.s.periods[period.Label] = period
	return nil
}

func (r *memPeriodRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Period, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, period := range r.s.periods {
		if period.PeriodID == id {
			return period, nil
		}
	}
	return nil, nil
}

func (r *memPeriodRepo) GetByLabel(ctx context.Context, label string) (*domain.Period, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.periods[label], nil
}

type memCourseRepo struct{ s *MemoryStore }

func (r *memCourseRepo) Create(ctx context.Context, course *domain.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.courses[course.CourseCode]; exists {
		return errDuplicate("course code", course.CourseCode)
	}
	if course.CourseID == uuid.Nil {
		course.CourseID = uuid.New()
	}
	r.s.courses[course.CourseCode] = course
	return nil
}

func (r *memCourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, course := range r.s.courses {
		if course.CourseID == id {
			return course, nil
		}
	}
	return nil, nil
}

func (r *memCourseRepo) GetByCode(ctx context.Context, courseCode string) (*domain.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.courses[courseCode], nil
}

type memStudentRepo struct{ s *MemoryStore }

func (r *memStudentRepo) Create(ctx context.Context, student *domain.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.students[student.EnrollmentID]; exists {
		return errDuplicate("enrollment id", student.EnrollmentID)
	}
	if student.StudentID == uuid.Nil {
		student.StudentID = uuid.New()
	}
	r.s.students[student.EnrollmentID] = student
	return nil
}

func (r *memStudentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, student := range r.s.students {
		if student.StudentID == id {
			return student, nil
		}
	}
	return nil, nil
}

func (r *memStudentRepo) GetByEnrollmentID(ctx context.Context, enrollmentID string) (*domain.Student, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.students[enrollmentID], nil
}

type memTranscriptRepo struct{ s *MemoryStore }

func (r *memTranscriptRepo) Create(ctx context.Context, entry *domain.TranscriptEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := tripleKey{entry.StudentID, entry.CourseID, entry.PeriodID}
	if _, exists := r.s.entries[key]; exists {
		return errDuplicate("transcript triple", key.studentID.String())
	}
	if entry.EntryID == uuid.Nil {
		entry.EntryID = uuid.New()
	}
	r.s.entries[key] = entry
	return nil
}

func (r *memTranscriptRepo) GetByTriple(ctx context.Context, studentID, courseID, periodID uuid.UUID) (*domain.TranscriptEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.entries[tripleKey{studentID, courseID, periodID}], nil
}

func (r *memTranscriptRepo) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.TranscriptEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var entries []*domain.TranscriptEntry
	for _, entry := range r.s.entries {
		if entry.StudentID == studentID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
