package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kardex-ingest/internal/api/middleware"
	domain "kardex-ingest/internal/domain/kardex"
	"kardex-ingest/internal/infrastructure/cache"
	"kardex-ingest/internal/infrastructure/repository"
	"kardex-ingest/internal/service"

	"github.com/gin-gonic/gin"
)

type stubReceiptCache struct {
	receipts map[string]*cache.IngestReceipt
}

func newStubReceiptCache() *stubReceiptCache {
	return &stubReceiptCache{receipts: make(map[string]*cache.IngestReceipt)}
}

func (f *stubReceiptCache) Get(ctx context.Context, key string) (*cache.IngestReceipt, error) {
	return f.receipts[key], nil
}

func (f *stubReceiptCache) Set(ctx context.Context, receipt *cache.IngestReceipt) error {
	f.receipts[receipt.Key] = receipt
	return nil
}

func kardexPayload(enrollmentID string) *domain.Payload {
	return &domain.Payload{
		OK: true,
		Student: domain.PayloadStudent{
			Program:      "Ingeniería",
			PlanVersion:  "2021-A",
			EnrollmentID: enrollmentID,
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

func newIngestRouter(store domain.Store, receipts service.ReceiptCache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.IdempotencyMiddleware())

	var idempotencyService *service.IdempotencyService
	if receipts != nil {
		idempotencyService = service.NewIdempotencyService(receipts)
	}
	handler := NewKardexHandler(
		service.NewIngestionService(store),
		service.NewTranscriptQueryService(store),
		idempotencyService,
	)
	r.POST("/api/v1/kardex", handler.Ingest)
	return r
}

func postKardex(t *testing.T, r *gin.Engine, payload *domain.Payload, key string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/kardex", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestKardexHandler_RejectsIdempotencyKeyReuseWithDifferentPayload(t *testing.T) {
	store := repository.NewMemoryStore()
	receipts := newStubReceiptCache()
	router := newIngestRouter(store, receipts)

	if w := postKardex(t, router, kardexPayload("A001"), "key-1"); w.Code != http.StatusOK {
		t.Fatalf("First submission failed with status %d: %s", w.Code, w.Body.String())
	}
	storedHash := receipts.receipts["key-1"].RequestHash

	// Same key, different payload: refused, not ingested, receipt untouched.
	w := postKardex(t, router, kardexPayload("A002"), "key-1")
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409 for key reuse, got %d: %s", w.Code, w.Body.String())
	}

	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Success {
		t.Error("Expected success=false for key conflict")
	}

	_, _, _, students, _ := store.Counts()
	if students != 1 {
		t.Errorf("Conflicting payload was ingested: expected 1 student, got %d", students)
	}
	if receipts.receipts["key-1"].RequestHash != storedHash {
		t.Error("Stored receipt was overwritten by the conflicting payload")
	}
}

func TestKardexHandler_ReplaysIdenticalSubmission(t *testing.T) {
	store := repository.NewMemoryStore()
	router := newIngestRouter(store, newStubReceiptCache())

	if w := postKardex(t, router, kardexPayload("A001"), "key-1"); w.Code != http.StatusOK {
		t.Fatalf("First submission failed with status %d: %s", w.Code, w.Body.String())
	}

	w := postKardex(t, router, kardexPayload("A001"), "key-1")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected replay with status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("Expected success=true on replay")
	}

	_, _, _, students, entries := store.Counts()
	if students != 1 || entries != 1 {
		t.Errorf("Replay touched the store: students=%d entries=%d", students, entries)
	}
}
