package kardex

import (
	"time"

	"github.com/google/uuid"
)

// AcademicStatus represents the enrollment standing of a student
type AcademicStatus string

const (
	StatusActive   AcademicStatus = "ACTIVE"
	StatusInactive AcademicStatus = "INACTIVE"
)

// Grade status labels produced by the grade-code decoder
const (
	GradeStatusUngraded = "UNGRADED"
	GradeStatusCredited = "CREDITED"
	GradeStatusOrdinary = "ORDINARY"
)

// DefaultCourseType is assigned to courses created during ingestion;
// the transcript source carries no course category.
const DefaultCourseType = "CURRICULAR"

// StudyPlan represents a curriculum version students enroll under
type StudyPlan struct {
	PlanID             uuid.UUID `json:"plan_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Version            string    `json:"version" gorm:"unique;not null"`
	Name               string    `json:"name" gorm:"not null"`
	TotalCredits       int       `json:"total_credits" gorm:"not null;default:0"`
	SuggestedSemesters int       `json:"suggested_semesters" gorm:"not null;default:0"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Period represents an academic period decoded from a compact period code
type Period struct {
	PeriodID  uuid.UUID `json:"period_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Year      int       `json:"year" gorm:"not null"`
	Cycle     int       `json:"cycle" gorm:"not null"`
	Label     string    `json:"label" gorm:"unique;not null"`
	StartDate time.Time `json:"start_date" gorm:"not null"`
	EndDate   time.Time `json:"end_date" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Course represents a catalog course. Course codes are unique across all
// study plans; PlanID records the plan active when the course was first seen.
type Course struct {
	CourseID   uuid.UUID `json:"course_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CourseCode string    `json:"course_code" gorm:"unique;not null"`
	CourseName string    `json:"course_name" gorm:"not null"`
	Credits    int       `json:"credits" gorm:"not null;default:0"`
	CourseType string    `json:"course_type" gorm:"not null"`
	PlanID     uuid.UUID `json:"plan_id" gorm:"type:uuid;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Student represents a student identified by their enrollment id (expediente)
type Student struct {
	StudentID       uuid.UUID      `json:"student_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	EnrollmentID    string         `json:"enrollment_id" gorm:"unique;not null"`
	GivenName       string         `json:"given_name" gorm:"not null"`
	PaternalSurname string         `json:"paternal_surname"`
	MaternalSurname string         `json:"maternal_surname"`
	Email           string         `json:"email" gorm:"not null"`
	AcademicStatus  AcademicStatus `json:"academic_status" gorm:"type:text;not null;default:ACTIVE"`
	PlanID          uuid.UUID      `json:"plan_id" gorm:"type:uuid;not null"`
	TotalCredits    int            `json:"total_credits" gorm:"not null;default:0"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	Plan            StudyPlan      `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
}

// TranscriptEntry represents one kardex line item: a course taken by a
// student in a period. (StudentID, CourseID, PeriodID) is unique; the
// aggregate GPA columns are placeholders filled by a separate process.
type TranscriptEntry struct {
	EntryID    uuid.UUID `json:"entry_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	StudentID  uuid.UUID `json:"student_id" gorm:"type:uuid;not null;uniqueIndex:idx_transcript_triple"`
	CourseID   uuid.UUID `json:"course_id" gorm:"type:uuid;not null;uniqueIndex:idx_transcript_triple"`
	PeriodID   uuid.UUID `json:"period_id" gorm:"type:uuid;not null;uniqueIndex:idx_transcript_triple"`
	Grade      *int      `json:"grade"`
	Status     string    `json:"status" gorm:"not null"`
	RunningGPA float64   `json:"running_gpa" gorm:"not null;default:0"`
	TermGPA    float64   `json:"term_gpa" gorm:"not null;default:0"`
	SourceFile *string   `json:"source_file"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	Student    Student   `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Course     Course    `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Period     Period    `json:"period,omitempty" gorm:"foreignKey:PeriodID"`
}

// Payload DTOs

// PayloadStudent carries the student block of a kardex payload
type PayloadStudent struct {
	Date         string `json:"date"`
	Program      string `json:"program"`
	PlanVersion  string `json:"planVersion" validate:"required"`
	Unit         string `json:"unit"`
	EnrollmentID string `json:"enrollmentId" validate:"required"`
	FullName     string `json:"fullName" validate:"required"`
	StatusCode   string `json:"statusCode"`
}

// PayloadCourse carries one transcript line item of a kardex payload.
// Only CourseCode, CourseName, Credits, OrdinaryGrade and PeriodCode are
// consumed by ingestion; the remaining fields are accepted and ignored.
type PayloadCourse struct {
	Credits             string `json:"credits"`
	CourseCode          string `json:"courseCode" validate:"required"`
	CourseName          string `json:"courseName"`
	Grade1              string `json:"grade1"`
	Grade2              string `json:"grade2"`
	OrdinaryGrade       string `json:"ordinaryGrade"`
	RegularizationGrade string `json:"regularizationGrade"`
	PeriodCode          string `json:"periodCode" validate:"required"`
	ExamI               string `json:"examI"`
	ExamR               string `json:"examR"`
	ExamB               string `json:"examB"`
}

// Payload is the inbound kardex document produced by the upstream scraper
type Payload struct {
	OK      bool            `json:"ok"`
	Student PayloadStudent  `json:"student" validate:"required"`
	Courses []PayloadCourse `json:"courses" validate:"dive"`
	Summary map[string]any  `json:"summary,omitempty"`
}

// IngestResult reports the outcome of a successful ingestion
type IngestResult struct {
	StudentID      uuid.UUID `json:"student_id"`
	PlanID         uuid.UUID `json:"plan_id"`
	EntriesCreated int       `json:"entries_created"`
	EntriesSkipped int       `json:"entries_skipped"`
}
