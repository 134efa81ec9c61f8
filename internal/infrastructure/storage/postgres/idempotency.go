package postgres

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"retailcore/internal/core/apperror"
)

const requestKeysTable = "request_idempotency"

// RequestStatus is the state of a replayable HTTP request.
type RequestStatus string

const (
	RequestPending RequestStatus = "pending"
	RequestDone    RequestStatus = "done"
)

// staleAfter is how long a pending key may sit before another request may reclaim it.
const staleAfter = time.Minute

// Replay is a stored response returned to a retried request.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// RequestKeyStore remembers the responses of mutating HTTP requests that carried
// an Idempotency-Key header, so a client retry gets the original answer.
// It sits in front of the ledger-level movement keys and never replaces them.
type RequestKeyStore struct {
	txManager *TxManager
	ttl       time.Duration
}

// NewRequestKeyStore creates a store whose keys expire after ttl.
func NewRequestKeyStore(txManager *TxManager, ttl time.Duration) *RequestKeyStore {
	return &RequestKeyStore{txManager: txManager, ttl: ttl}
}

// Acquire claims key for this request.
// Returns:
//   - (nil, nil) when the caller owns the key and must run the request
//   - (replay, nil) when the request already completed
//   - (nil, err) when the key is in flight or was used for another request
func (s *RequestKeyStore) Acquire(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error) {
	now := time.Now().UTC()

	var (
		inserted    bool
		storedUser  string
		storedOp    string
		storedHash  string
		status      RequestStatus
		statusCode  *int
		contentType *string
		body        []byte
		updatedAt   time.Time
	)
	err := s.txManager.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO request_idempotency (idempotency_key, user_id, operation, request_hash, status, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE SET expires_at = GREATEST(request_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING (xmax = 0), user_id, operation, request_hash, status, response_status, response_content_type, response, updated_at
	`, key, userID, operation, requestHash, RequestPending, now, now.Add(s.ttl)).Scan(
		&inserted, &storedUser, &storedOp, &storedHash, &status, &statusCode, &contentType, &body, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire request key: %w", err)
	}
	if inserted {
		return nil, nil
	}

	if storedUser != userID || storedOp != operation || storedHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("operation", operation)
	}

	if status == RequestDone {
		replay := &Replay{StatusCode: http.StatusOK, ContentType: "application/json", Body: body}
		if statusCode != nil && *statusCode != 0 {
			replay.StatusCode = *statusCode
		}
		if contentType != nil && *contentType != "" {
			replay.ContentType = *contentType
		}
		return replay, nil
	}

	if now.Sub(updatedAt) <= staleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}

	// the previous holder most likely crashed; take the key over
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`UPDATE request_idempotency SET updated_at = $1 WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4`,
		now, key, RequestPending, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("reclaim request key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

// Complete stores the response of a finished request.
func (s *RequestKeyStore) Complete(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE request_idempotency
		SET status = $1, response_status = $2, response_content_type = $3, response = $4, updated_at = $5
		WHERE idempotency_key = $6
	`, RequestDone, statusCode, contentType, body, time.Now().UTC(), key)
	if err != nil {
		return fmt.Errorf("complete request key: %w", err)
	}
	return nil
}

// Release forgets a key whose request failed, so the client may retry it.
func (s *RequestKeyStore) Release(ctx context.Context, key string) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM request_idempotency WHERE idempotency_key = $1 AND status = $2`, key, RequestPending)
	if err != nil {
		return fmt.Errorf("release request key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired keys and returns how many were deleted.
func (s *RequestKeyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM `+requestKeysTable+` WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup request keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
