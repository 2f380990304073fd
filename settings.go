package authguard

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

// SettingAuthenticationEnabled is the settings key holding the service-wide
// authentication toggle.
const SettingAuthenticationEnabled = "authentication.enabled"

// AuthSetting is a persisted service-wide switch. The guard only consumes the
// authentication toggle, but the table is generic on purpose so deployments
// can co-locate other flags.
type AuthSetting struct {
	bun.BaseModel `bun:"table:auth_settings,alias:aset"`
	Key           string     `bun:"key,pk" json:"key"`
	Enabled       bool       `bun:"enabled,notnull" json:"enabled"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// BunSettingsReader reads the authentication toggle from the settings table.
// By default every request triggers a fresh read so toggle flips take effect
// immediately; WithSettingsCacheTTL trades that immediacy for fewer queries.
type BunSettingsReader struct {
	db  *bun.DB
	ttl time.Duration

	mu       sync.Mutex
	cached   bool
	cachedAt time.Time
}

var _ SettingsReader = (*BunSettingsReader)(nil)

// SettingsReaderOption customizes the settings reader.
type SettingsReaderOption func(*BunSettingsReader)

// WithSettingsCacheTTL enables caching of the toggle for the given duration.
// A flipped toggle is then visible within at most the TTL.
func WithSettingsCacheTTL(ttl time.Duration) SettingsReaderOption {
	return func(r *BunSettingsReader) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewBunSettingsReader builds a reader on the given database handle.
func NewBunSettingsReader(db *bun.DB, opts ...SettingsReaderOption) *BunSettingsReader {
	r := &BunSettingsReader{db: db}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// AuthenticationEnabled implements SettingsReader. A missing row means
// authentication is enabled: the bypass must be an explicit choice.
func (r *BunSettingsReader) AuthenticationEnabled(ctx context.Context) (bool, error) {
	if r.ttl > 0 {
		r.mu.Lock()
		if !r.cachedAt.IsZero() && time.Since(r.cachedAt) < r.ttl {
			enabled := r.cached
			r.mu.Unlock()
			return enabled, nil
		}
		r.mu.Unlock()
	}

	record := &AuthSetting{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", SettingAuthenticationEnabled).
		Limit(1).
		Scan(ctx)

	enabled := true
	switch {
	case err == nil:
		enabled = record.Enabled
	case errors.Is(err, sql.ErrNoRows):
	default:
		return false, err
	}

	if r.ttl > 0 {
		r.mu.Lock()
		r.cached = enabled
		r.cachedAt = time.Now()
		r.mu.Unlock()
	}

	return enabled, nil
}

// SetAuthenticationEnabled upserts the toggle row. Exposed for admin tooling
// and tests.
func (r *BunSettingsReader) SetAuthenticationEnabled(ctx context.Context, enabled bool) error {
	now := time.Now()
	record := &AuthSetting{
		Key:       SettingAuthenticationEnabled,
		Enabled:   enabled,
		UpdatedAt: &now,
	}

	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.cached = enabled
	r.cachedAt = time.Now()
	r.mu.Unlock()

	return nil
}

// MemorySettings is an in-process SettingsReader for tests and single-binary
// setups without a settings table.
type MemorySettings struct {
	mu      sync.RWMutex
	enabled bool
	err     error
}

var _ SettingsReader = (*MemorySettings)(nil)

// NewMemorySettings starts with authentication enabled.
func NewMemorySettings() *MemorySettings {
	return &MemorySettings{enabled: true}
}

// AuthenticationEnabled implements SettingsReader.
func (m *MemorySettings) AuthenticationEnabled(context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled, m.err
}

// SetEnabled flips the toggle.
func (m *MemorySettings) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// FailWith makes subsequent reads return err. Passing nil clears the fault.
func (m *MemorySettings) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
