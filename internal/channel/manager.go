package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tripora/booking/config"
	"github.com/tripora/booking/internal/domain"
)

// Locker is the four-method contract the booking core depends on. The
// internal variant is backed by room_availability rows and settles inside the
// booking repository's transactions; the external variant proxies to a
// channel-manager HTTP API, or to a simulated lock when no endpoint is
// configured, so the rest of the system behaves identically without a live
// integration.
type Locker interface {
	LockInventory(ctx context.Context, req LockRequest) (*domain.InventoryLock, error)
	ConfirmLock(ctx context.Context, lock *domain.InventoryLock) error
	ReleaseLock(ctx context.Context, lock *domain.InventoryLock) error
}

type LockRequest struct {
	RoomTypeID uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	NumRooms   int
	Source     domain.LockSource
}

type Manager struct {
	baseURL string
	apiKey  string
	client  *http.Client
	holdTTL time.Duration
}

func NewManager(cfg config.ChannelManagerConfig, holdTTL time.Duration) *Manager {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		holdTTL: holdTTL,
	}
}

func (m *Manager) LockInventory(ctx context.Context, req LockRequest) (*domain.InventoryLock, error) {
	lock := &domain.InventoryLock{
		ID:         uuid.New(),
		Source:     req.Source,
		Status:     domain.LockStatusActive,
		RoomTypeID: req.RoomTypeID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		NumRooms:   req.NumRooms,
		ExpiresAt:  time.Now().Add(m.holdTTL),
	}

	if req.Source == domain.LockSourceInternal {
		// The ledger decrement happens in the same transaction that
		// persists this record.
		return lock, nil
	}

	if m.baseURL == "" {
		lock.ExternalRef = "SIM-" + lock.ID.String()
		return lock, nil
	}

	var resp struct {
		Ref string `json:"ref"`
	}
	if err := m.post(ctx, "/locks", map[string]any{
		"room_type_id": req.RoomTypeID.String(),
		"check_in":     req.CheckIn.Format("2006-01-02"),
		"check_out":    req.CheckOut.Format("2006-01-02"),
		"num_rooms":    req.NumRooms,
	}, &resp); err != nil {
		lock.Status = domain.LockStatusFailed
		return nil, &domain.InventoryLockError{Op: "lock", Err: err}
	}
	lock.ExternalRef = resp.Ref
	return lock, nil
}

func (m *Manager) ConfirmLock(ctx context.Context, lock *domain.InventoryLock) error {
	if lock == nil || lock.Source == domain.LockSourceInternal {
		return nil
	}
	if m.baseURL == "" {
		return nil
	}
	if err := m.post(ctx, "/locks/"+lock.ExternalRef+"/confirm", nil, nil); err != nil {
		return &domain.InventoryLockError{Op: "confirm", Ref: lock.ExternalRef, Err: err}
	}
	return nil
}

// ReleaseLock is idempotent: a lock that already settled, or that the remote
// side no longer knows about, is treated as released.
func (m *Manager) ReleaseLock(ctx context.Context, lock *domain.InventoryLock) error {
	if lock == nil || lock.Source == domain.LockSourceInternal {
		return nil
	}
	if lock.Settled() || m.baseURL == "" {
		return nil
	}
	if err := m.post(ctx, "/locks/"+lock.ExternalRef+"/release", nil, nil); err != nil {
		return &domain.InventoryLockError{Op: "release", Ref: lock.ExternalRef, Err: err}
	}
	return nil
}

func (m *Manager) post(ctx context.Context, path string, payload any, out any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("X-API-Key", m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 404 and 409 on confirm/release mean the remote already settled the
	// lock; treat as success.
	if out == nil && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusConflict) {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("channel manager returned %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ Locker = (*Manager)(nil)
