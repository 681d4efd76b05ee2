package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/echolabs/twinsight-backend/internal/pkg/errors"
	"github.com/echolabs/twinsight-backend/internal/types"
	"github.com/echolabs/twinsight-backend/internal/utils"
)

// memConnRepo keeps connections keyed by (user, platform), the same natural
// key the real repo upserts on.
type memConnRepo struct {
	conns map[string]*types.PlatformConnection
}

func newMemConnRepo() *memConnRepo {
	return &memConnRepo{conns: map[string]*types.PlatformConnection{}}
}

func connKey(userID uuid.UUID, platform string) string {
	return userID.String() + "/" + platform
}

func (m *memConnRepo) Upsert(ctx context.Context, tx *gorm.DB, conn *types.PlatformConnection) error {
	key := connKey(conn.UserID, conn.Platform)
	if existing, ok := m.conns[key]; ok {
		conn.ID = existing.ID
	} else if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	cp := *conn
	m.conns[key] = &cp
	return nil
}

func (m *memConnRepo) GetByUserAndPlatform(ctx context.Context, tx *gorm.DB, userID uuid.UUID, platform string) (*types.PlatformConnection, error) {
	conn, ok := m.conns[connKey(userID, platform)]
	if !ok {
		return nil, nil
	}
	cp := *conn
	return &cp, nil
}

func (m *memConnRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PlatformConnection, error) {
	var out []*types.PlatformConnection
	for _, conn := range m.conns {
		if conn.UserID == userID {
			cp := *conn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memConnRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ConnectionStatus) error {
	for _, conn := range m.conns {
		if conn.ID == id {
			conn.Status = status
		}
	}
	return nil
}

func (m *memConnRepo) GetUserIDsWithActiveConnections(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, conn := range m.conns {
		if conn.Status == types.ConnectionActive {
			out = append(out, conn.UserID)
		}
	}
	return out, nil
}

func testCipher(t *testing.T) *utils.TokenCipher {
	t.Helper()
	cipher, err := utils.NewTokenCipher("test-secret", "test-salt")
	if err != nil {
		t.Fatalf("init cipher: %v", err)
	}
	return cipher
}

func TestTokenProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newMemConnRepo()
	svc := NewTokenProviderService(nil, testLogger(t), repo, testCipher(t), nil)

	userID := uuid.New()
	future := time.Now().UTC().Add(time.Hour)
	if err := svc.StoreTokens(ctx, userID, "spotify", "access-123", "refresh-456", &future); err != nil {
		t.Fatalf("StoreTokens: %v", err)
	}

	// Stored tokens must not sit in the repo as plaintext.
	stored, _ := repo.GetByUserAndPlatform(ctx, nil, userID, "spotify")
	if stored.AccessToken == "access-123" || stored.RefreshToken == "refresh-456" {
		t.Fatal("tokens stored unencrypted")
	}

	token, err := svc.GetValidAccessToken(ctx, userID, "spotify")
	if err != nil {
		t.Fatalf("GetValidAccessToken: %v", err)
	}
	if token != "access-123" {
		t.Fatalf("wrong token: %q", token)
	}
}

func TestTokenProviderExpiredWithoutRefresh(t *testing.T) {
	ctx := context.Background()
	repo := newMemConnRepo()
	svc := NewTokenProviderService(nil, testLogger(t), repo, testCipher(t), nil)

	userID := uuid.New()
	past := time.Now().UTC().Add(-time.Hour)
	if err := svc.StoreTokens(ctx, userID, "github", "stale-token", "", &past); err != nil {
		t.Fatalf("StoreTokens: %v", err)
	}

	_, err := svc.GetValidAccessToken(ctx, userID, "github")
	if !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	stored, _ := repo.GetByUserAndPlatform(ctx, nil, userID, "github")
	if stored.Status != types.ConnectionNeedsReauth {
		t.Fatalf("connection not flipped to needs_reauth: %s", stored.Status)
	}

	// Once flagged, the short-circuit applies before any expiry math.
	_, err = svc.GetValidAccessToken(ctx, userID, "github")
	if !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired on needs_reauth, got %v", err)
	}
}

func TestTokenProviderRefreshSuccess(t *testing.T) {
	ctx := context.Background()
	repo := newMemConnRepo()

	refreshCalls := 0
	refresh := func(ctx context.Context, platform, refreshToken string) (string, time.Time, error) {
		refreshCalls++
		if refreshToken != "refresh-456" {
			t.Fatalf("refresh received wrong token: %q", refreshToken)
		}
		return "fresh-789", time.Now().UTC().Add(time.Hour), nil
	}
	svc := NewTokenProviderService(nil, testLogger(t), repo, testCipher(t), refresh)

	userID := uuid.New()
	past := time.Now().UTC().Add(-time.Minute)
	if err := svc.StoreTokens(ctx, userID, "spotify", "stale", "refresh-456", &past); err != nil {
		t.Fatalf("StoreTokens: %v", err)
	}

	token, err := svc.GetValidAccessToken(ctx, userID, "spotify")
	if err != nil {
		t.Fatalf("GetValidAccessToken: %v", err)
	}
	if token != "fresh-789" || refreshCalls != 1 {
		t.Fatalf("refresh path wrong: token=%q calls=%d", token, refreshCalls)
	}

	// The refreshed token is persisted, so the next call skips the hook.
	token, err = svc.GetValidAccessToken(ctx, userID, "spotify")
	if err != nil || token != "fresh-789" {
		t.Fatalf("second fetch: token=%q err=%v", token, err)
	}
	if refreshCalls != 1 {
		t.Fatalf("refresh re-invoked after persist: %d", refreshCalls)
	}
}

func TestTokenProviderRefreshFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemConnRepo()
	refresh := func(ctx context.Context, platform, refreshToken string) (string, time.Time, error) {
		return "", time.Time{}, errors.New("provider is down")
	}
	svc := NewTokenProviderService(nil, testLogger(t), repo, testCipher(t), refresh)

	userID := uuid.New()
	past := time.Now().UTC().Add(-time.Minute)
	if err := svc.StoreTokens(ctx, userID, "youtube", "stale", "refresh-456", &past); err != nil {
		t.Fatalf("StoreTokens: %v", err)
	}

	_, err := svc.GetValidAccessToken(ctx, userID, "youtube")
	if !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	stored, _ := repo.GetByUserAndPlatform(ctx, nil, userID, "youtube")
	if stored.Status != types.ConnectionNeedsReauth {
		t.Fatalf("connection not flipped to needs_reauth: %s", stored.Status)
	}
}

func TestTokenProviderDisconnect(t *testing.T) {
	ctx := context.Background()
	repo := newMemConnRepo()
	svc := NewTokenProviderService(nil, testLogger(t), repo, testCipher(t), nil)

	userID := uuid.New()
	if err := svc.StoreTokens(ctx, userID, "wearable", "tok", "", nil); err != nil {
		t.Fatalf("StoreTokens: %v", err)
	}
	if err := svc.Disconnect(ctx, userID, "wearable"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	_, err := svc.GetValidAccessToken(ctx, userID, "wearable")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after disconnect, got %v", err)
	}

	if err := svc.Disconnect(ctx, userID, "never-connected"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown platform, got %v", err)
	}
}
