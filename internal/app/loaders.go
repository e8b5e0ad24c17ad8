package app

import (
	"context"

	"aibuddies/internal/api"
	"aibuddies/internal/logging"
)

// LoadTools fetches the catalog. It works without a session.
func (a *App) LoadTools(ctx context.Context) error {
	cat, err := a.api.Tools(ctx)
	if err != nil {
		logging.AppDebug("Catalog load failed: %v", err)
		return err
	}
	a.update(func(s *State) { s.Catalog = cat })
	logging.App("Loaded %d tools", len(cat.Tools))
	return nil
}

// LoadProfile fetches the balance. It is a no-op when signed out.
func (a *App) LoadProfile(ctx context.Context) error {
	return a.loadProfile(ctx, a.api)
}

func (a *App) refreshProfile(ctx context.Context) {
	_ = a.loadProfile(ctx, a.quietAPI)
}

func (a *App) loadProfile(ctx context.Context, client *api.Client) error {
	if a.sessions.Current() == nil {
		return nil
	}
	p, err := client.Profile(ctx)
	if err != nil {
		logging.AppDebug("Profile load failed: %v", err)
		return err
	}
	a.update(func(s *State) {
		// A sign-out may have landed while the request was in flight.
		if a.sessions.Current() == nil {
			return
		}
		s.Profile = p
	})
	return nil
}
