// Package directory is the client for the external user-directory service.
// Responses are cached in Redis: 300s for the user list, 600s for media.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

const (
	usersCacheKey    = "notification.users"
	usersCacheTTL    = 300 * time.Second
	mediaCacheKeyFmt = "notification.media.%s"
	mediaCacheTTL    = 600 * time.Second
)

// HTTPClient is the outbound HTTP dependency.
type HTTPClient interface {
	DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Cache is the subset of the Redis client used by the proxy.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type Proxy struct {
	httpClient HTTPClient
	cache      Cache
	config     config.DirectoryConfig
	logger     logger.Logger
}

func NewProxy(httpClient HTTPClient, cache Cache, cfg config.DirectoryConfig, log logger.Logger) *Proxy {
	return &Proxy{
		httpClient: httpClient,
		cache:      cache,
		config:     cfg,
		logger:     log.WithFields(map[string]interface{}{"component": "directory"}),
	}
}

// GetUsers returns the full user list, served from cache when fresh.
func (p *Proxy) GetUsers(ctx context.Context) ([]models.User, error) {
	if cached, err := p.cache.Get(ctx, usersCacheKey); err == nil && cached != "" {
		var users []models.User
		if err := json.Unmarshal([]byte(cached), &users); err == nil {
			return users, nil
		}
		p.logger.Warn("discarding corrupt cached user list", nil)
	}

	users, err := p.fetchUsers(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(users); err == nil {
		if err := p.cache.Set(ctx, usersCacheKey, payload, usersCacheTTL); err != nil {
			p.logger.Warn("user list cache write failed", map[string]interface{}{"error": err})
		}
	}

	return users, nil
}

// GetMedia returns one media record by ID, served from cache when fresh.
func (p *Proxy) GetMedia(ctx context.Context, mediaID string) (map[string]interface{}, error) {
	cacheKey := fmt.Sprintf(mediaCacheKeyFmt, mediaID)

	if cached, err := p.cache.Get(ctx, cacheKey); err == nil && cached != "" {
		var media map[string]interface{}
		if err := json.Unmarshal([]byte(cached), &media); err == nil {
			return media, nil
		}
	}

	media, err := p.fetchMedia(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(media); err == nil {
		if err := p.cache.Set(ctx, cacheKey, payload, mediaCacheTTL); err != nil {
			p.logger.Warn("media cache write failed", map[string]interface{}{"error": err})
		}
	}

	return media, nil
}

func (p *Proxy) fetchUsers(ctx context.Context) ([]models.User, error) {
	req, err := http.NewRequest(http.MethodGet, p.config.BaseURL, nil)
	if err != nil {
		return nil, errors.NewDirectoryFetchFailedError(err)
	}
	req.Header.Set("Authorization", "ApiKey "+p.config.APIKey)

	resp, err := p.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return nil, errors.NewDirectoryFetchFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewDirectoryFetchFailedError(
			fmt.Errorf("user directory returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewDirectoryFetchFailedError(err)
	}

	var users []models.User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, errors.NewDirectoryFetchFailedError(err)
	}

	return users, nil
}

func (p *Proxy) fetchMedia(ctx context.Context, mediaID string) (map[string]interface{}, error) {
	req, err := http.NewRequest(http.MethodGet, p.config.MediaURL+"/"+mediaID, nil)
	if err != nil {
		return nil, errors.NewDirectoryFetchFailedError(err)
	}

	resp, err := p.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return nil, errors.NewDirectoryFetchFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewDirectoryFetchFailedError(
			fmt.Errorf("media service returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewDirectoryFetchFailedError(err)
	}

	var media map[string]interface{}
	if err := json.Unmarshal(body, &media); err != nil {
		return nil, errors.NewDirectoryFetchFailedError(err)
	}

	return media, nil
}
