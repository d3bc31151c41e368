package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "kardex-ingest/internal/domain/kardex"
	"kardex-ingest/internal/infrastructure/cache"
	"kardex-ingest/pkg/logger"
)

const DefaultReceiptTTL = 24 * time.Hour

// ErrIdempotencyConflict reports an Idempotency-Key reused with a payload
// that differs from the one the key was first recorded with.
var ErrIdempotencyConflict = errors.New("idempotency key already used with a different payload")

// ReceiptCache is the slice of the redis cache the idempotency service needs
type ReceiptCache interface {
	Get(ctx context.Context, key string) (*cache.IngestReceipt, error)
	Set(ctx context.Context, receipt *cache.IngestReceipt) error
}

// IdempotencyService answers repeated kardex submissions carrying the same
// Idempotency-Key from a cached receipt instead of re-running the
// ingestion. Replaying an ingestion is safe either way; this only
// short-circuits the round trip to the database.
type IdempotencyService struct {
	receipts ReceiptCache
}

func NewIdempotencyService(receipts ReceiptCache) *IdempotencyService {
	return &IdempotencyService{
		receipts: receipts,
	}
}

// CheckDuplicate returns the cached result when key was already used with
// an identical payload. A key reused with a different payload fails with
// ErrIdempotencyConflict.
func (s *IdempotencyService) CheckDuplicate(ctx context.Context, key string, payload *domain.Payload) (*domain.IngestResult, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	receipt, err := s.receipts.Get(ctx, key)
	if err != nil {
		logger.Error("Failed to check ingest receipt: %v", err)
		return nil, false, fmt.Errorf("failed to check ingest receipt: %w", err)
	}
	if receipt == nil {
		return nil, false, nil
	}

	if receipt.RequestHash != hashPayload(payload) {
		logger.Warn("Idempotency key %s reused with different payload", key)
		return nil, false, ErrIdempotencyConflict
	}

	logger.Info("Duplicate kardex submission detected for idempotency key: %s", key)
	return &receipt.Result, true, nil
}

// StoreResult records the outcome of a successful ingestion under key
func (s *IdempotencyService) StoreResult(ctx context.Context, key string, payload *domain.Payload, result *domain.IngestResult) error {
	if key == "" {
		return nil
	}

	receipt := &cache.IngestReceipt{
		Key:         key,
		RequestHash: hashPayload(payload),
		Result:      *result,
		CreatedAt:   time.Now(),
	}
	if err := s.receipts.Set(ctx, receipt); err != nil {
		logger.Warn("Failed to store ingest receipt for key %s: %v", key, err)
		return err
	}
	return nil
}

func hashPayload(payload *domain.Payload) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
