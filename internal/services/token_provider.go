package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/logger"
	apperrors "github.com/echolabs/twinsight-backend/internal/pkg/errors"
	"github.com/echolabs/twinsight-backend/internal/repos"
	"github.com/echolabs/twinsight-backend/internal/types"
	"github.com/echolabs/twinsight-backend/internal/utils"
)

// RefreshFunc exchanges a refresh token for a new access token. The real
// OAuth exchange lives outside this service; tests and deployments without
// live platform APIs leave it nil.
type RefreshFunc func(ctx context.Context, platform, refreshToken string) (accessToken string, expiresAt time.Time, err error)

type TokenProviderService interface {
	GetValidAccessToken(ctx context.Context, userID uuid.UUID, platform string) (string, error)
	StoreTokens(ctx context.Context, userID uuid.UUID, platform, accessToken, refreshToken string, expiresAt *time.Time) error
	ListConnections(ctx context.Context, userID uuid.UUID) ([]*types.PlatformConnection, error)
	Disconnect(ctx context.Context, userID uuid.UUID, platform string) error
}

type tokenProviderService struct {
	db       *gorm.DB
	log      *logger.Logger
	connRepo repos.PlatformConnectionRepo
	cipher   *utils.TokenCipher
	refresh  RefreshFunc
}

func NewTokenProviderService(db *gorm.DB, log *logger.Logger, connRepo repos.PlatformConnectionRepo, cipher *utils.TokenCipher, refresh RefreshFunc) TokenProviderService {
	return &tokenProviderService{
		db:       db,
		log:      log.With("service", "TokenProviderService"),
		connRepo: connRepo,
		cipher:   cipher,
		refresh:  refresh,
	}
}

// GetValidAccessToken returns a decrypted, unexpired access token for the
// user's platform connection. An expired token is refreshed when a refresh
// hook is configured; otherwise the connection is flipped to needs_reauth and
// ErrTokenExpired comes back.
func (s *tokenProviderService) GetValidAccessToken(ctx context.Context, userID uuid.UUID, platform string) (string, error) {
	if userID == uuid.Nil || platform == "" {
		return "", apperrors.ErrInvalidArgument
	}

	conn, err := s.connRepo.GetByUserAndPlatform(ctx, nil, userID, platform)
	if err != nil {
		return "", fmt.Errorf("load connection: %w", err)
	}
	if conn == nil || conn.Status == types.ConnectionDisconnected {
		return "", fmt.Errorf("%s connection for user %s: %w", platform, userID, apperrors.ErrNotFound)
	}
	if conn.Status == types.ConnectionNeedsReauth {
		return "", apperrors.ErrTokenExpired
	}

	expired := conn.TokenExpiresAt != nil && !conn.TokenExpiresAt.After(time.Now().UTC())
	if !expired {
		token, err := s.cipher.Decrypt(conn.AccessToken)
		if err != nil {
			return "", fmt.Errorf("decrypt access token: %w", err)
		}
		return token, nil
	}

	if s.refresh == nil || conn.RefreshToken == "" {
		if err := s.connRepo.UpdateStatus(ctx, nil, conn.ID, types.ConnectionNeedsReauth); err != nil {
			s.log.Warn("Failed to mark connection needs_reauth", "connectionID", conn.ID, "error", err)
		}
		return "", apperrors.ErrTokenExpired
	}

	refreshToken, err := s.cipher.Decrypt(conn.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("decrypt refresh token: %w", err)
	}
	newToken, newExpiry, err := s.refresh(ctx, platform, refreshToken)
	if err != nil {
		s.log.Warn("Token refresh failed", "platform", platform, "userID", userID, "error", err)
		if markErr := s.connRepo.UpdateStatus(ctx, nil, conn.ID, types.ConnectionNeedsReauth); markErr != nil {
			s.log.Warn("Failed to mark connection needs_reauth", "connectionID", conn.ID, "error", markErr)
		}
		return "", fmt.Errorf("refresh token: %w", apperrors.ErrTokenExpired)
	}

	sealed, err := s.cipher.Encrypt(newToken)
	if err != nil {
		return "", fmt.Errorf("encrypt refreshed token: %w", err)
	}
	conn.AccessToken = sealed
	conn.TokenExpiresAt = &newExpiry
	conn.Status = types.ConnectionActive
	if err := s.connRepo.Upsert(ctx, nil, conn); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}
	return newToken, nil
}

func (s *tokenProviderService) StoreTokens(ctx context.Context, userID uuid.UUID, platform, accessToken, refreshToken string, expiresAt *time.Time) error {
	if userID == uuid.Nil || platform == "" || accessToken == "" {
		return apperrors.ErrInvalidArgument
	}
	sealedAccess, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	sealedRefresh := ""
	if refreshToken != "" {
		if sealedRefresh, err = s.cipher.Encrypt(refreshToken); err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
	}
	conn := &types.PlatformConnection{
		UserID:         userID,
		Platform:       platform,
		AccessToken:    sealedAccess,
		RefreshToken:   sealedRefresh,
		TokenExpiresAt: expiresAt,
		Status:         types.ConnectionActive,
	}
	return s.connRepo.Upsert(ctx, nil, conn)
}

func (s *tokenProviderService) ListConnections(ctx context.Context, userID uuid.UUID) ([]*types.PlatformConnection, error) {
	if userID == uuid.Nil {
		return nil, apperrors.ErrInvalidArgument
	}
	return s.connRepo.GetByUserID(ctx, nil, userID)
}

func (s *tokenProviderService) Disconnect(ctx context.Context, userID uuid.UUID, platform string) error {
	if userID == uuid.Nil || platform == "" {
		return apperrors.ErrInvalidArgument
	}
	conn, err := s.connRepo.GetByUserAndPlatform(ctx, nil, userID, platform)
	if err != nil {
		return err
	}
	if conn == nil {
		return apperrors.ErrNotFound
	}
	return s.connRepo.UpdateStatus(ctx, nil, conn.ID, types.ConnectionDisconnected)
}
