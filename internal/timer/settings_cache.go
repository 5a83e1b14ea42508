package timer

import (
	"context"
	"sync"

	"github.com/ronaldtieu/pomodoro-project/internal/model"
)

// SettingsProvider supplies and updates per-account configuration.
type SettingsProvider interface {
	Get(ctx context.Context, userID string) (model.UserSettings, error)
	Update(ctx context.Context, userID string, patch model.SettingsPatch) (model.UserSettings, error)
}

// CachedSettings memoizes one account's settings so the engine does not hit
// the provider before every phase start. Updates refresh the cache; external
// writers call Invalidate.
type CachedSettings struct {
	mu       sync.Mutex
	provider SettingsProvider
	cached   *model.UserSettings
}

func NewCachedSettings(provider SettingsProvider) *CachedSettings {
	return &CachedSettings{provider: provider}
}

func (c *CachedSettings) Get(ctx context.Context, userID string) (model.UserSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil {
		return *c.cached, nil
	}

	settings, err := c.provider.Get(ctx, userID)
	if err != nil {
		return model.UserSettings{}, err
	}
	c.cached = &settings
	return settings, nil
}

func (c *CachedSettings) Update(ctx context.Context, userID string, patch model.SettingsPatch) (model.UserSettings, error) {
	settings, err := c.provider.Update(ctx, userID, patch)
	if err != nil {
		return model.UserSettings{}, err
	}

	c.mu.Lock()
	c.cached = &settings
	c.mu.Unlock()
	return settings, nil
}

func (c *CachedSettings) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}
