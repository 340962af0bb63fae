package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/client/jobber"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/models"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/repository"
)

const (
	defaultExpiryBuffer    = 5 * time.Minute
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenManager keeps the account's access token valid. It reads the stored
// credential row, refreshes it through the provider's token endpoint when the
// remaining lifetime drops below the buffer, and persists the new pair
// atomically. The mutex ensures two callers never refresh simultaneously and
// invalidate each other's refresh token.
type TokenManager struct {
	Repo      repository.TokenRepository
	OAuth     *oauth2.Config
	AccountID string
	Logger    *zap.Logger

	ExpiryBuffer    time.Duration
	RefreshTokenTTL time.Duration

	// TokenSource may be overridden in tests; the default performs a real
	// refresh-token grant against OAuth.Endpoint.TokenURL.
	TokenSource func(ctx context.Context, refreshToken string) oauth2.TokenSource

	Now func() time.Time

	mu sync.Mutex
}

// AccessToken returns a token valid for at least the configured buffer from
// now. Missing credentials, an expired refresh token or a rejected grant all
// surface as *jobber.AuthError, which aborts the run.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	stored, err := m.Repo.GetOAuthToken(ctx, m.AccountID)
	if err != nil {
		return "", err
	}
	if stored == nil {
		return "", &jobber.AuthError{Message: "no credentials stored for account " + m.AccountID}
	}

	buffer := m.ExpiryBuffer
	if buffer <= 0 {
		buffer = defaultExpiryBuffer
	}
	if stored.AccessExpiresAt.After(now.Add(buffer)) {
		return stored.AccessToken, nil
	}

	if !stored.RefreshExpiresAt.IsZero() && !stored.RefreshExpiresAt.After(now) {
		return "", &jobber.AuthError{Message: "refresh token expired; account must reconnect"}
	}

	refreshed, err := m.refresh(ctx, stored, now)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

func (m *TokenManager) refresh(ctx context.Context, stored *models.OAuthToken, now time.Time) (*models.OAuthToken, error) {
	source := m.TokenSource
	if source == nil {
		source = func(ctx context.Context, refreshToken string) oauth2.TokenSource {
			return m.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
		}
	}

	token, err := source(ctx, stored.RefreshToken).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			// The provider rejected the grant; retrying cannot succeed.
			authErr := &jobber.AuthError{Message: "refresh rejected: " + retrieveErr.ErrorCode}
			if retrieveErr.Response != nil {
				authErr.Status = retrieveErr.Response.StatusCode
			}
			return nil, authErr
		}
		return nil, &jobber.TransientError{Err: err}
	}

	if token.AccessToken == "" {
		return nil, &jobber.AuthError{Message: "refresh response missing access token"}
	}
	// A token is never persisted without an expiry, and the expiry must move
	// strictly forward; anything else is treated as a rejected refresh.
	if token.Expiry.IsZero() || !token.Expiry.After(stored.AccessExpiresAt) {
		return nil, &jobber.AuthError{Message: "refresh response carried no usable expiry"}
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = stored.RefreshToken
	}

	refreshTTL := m.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}
	refreshExpiry := now.Add(refreshTTL)
	if v, ok := token.Extra("refresh_token_expires_in").(float64); ok && v > 0 {
		refreshExpiry = now.Add(time.Duration(v) * time.Second)
	}

	updated := &models.OAuthToken{
		AccountID:        stored.AccountID,
		AccessToken:      token.AccessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  token.Expiry.UTC(),
		RefreshExpiresAt: refreshExpiry.UTC(),
	}
	if err := m.Repo.SaveOAuthToken(ctx, updated); err != nil {
		return nil, err
	}
	if m.Logger != nil {
		m.Logger.Info("access token refreshed",
			zap.String("account_id", m.AccountID),
			zap.Time("expires_at", updated.AccessExpiresAt),
		)
	}
	return updated, nil
}

func (m *TokenManager) clock() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}
