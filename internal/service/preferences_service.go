package service

import (
	"context"

	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/kvstore"
)

// PreferencesService reads and writes user flags in the key-value store.
// Writes reach watchers of the same key, so the lifecycle picks up a changed
// automatic checkout default.
type PreferencesService struct {
	store kvstore.Store
}

func NewPreferencesService(store kvstore.Store) *PreferencesService {
	return &PreferencesService{store: store}
}

func (p *PreferencesService) AutomaticCheckoutDefault(ctx context.Context) (bool, error) {
	return kvstore.RestoreOrDefault(ctx, p.store, domain.KeyAutomaticCheckoutEnabled, false)
}

func (p *PreferencesService) SetAutomaticCheckoutDefault(ctx context.Context, enabled bool) error {
	return kvstore.Persist(ctx, p.store, domain.KeyAutomaticCheckoutEnabled, enabled)
}

func (p *PreferencesService) LocationConsentGiven(ctx context.Context) (bool, error) {
	return kvstore.RestoreOrDefault(ctx, p.store, domain.KeyLocationConsentGiven, false)
}

func (p *PreferencesService) SetLocationConsentGiven(ctx context.Context, given bool) error {
	return kvstore.Persist(ctx, p.store, domain.KeyLocationConsentGiven, given)
}
