package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-stagepass/internal/platform"
)

// Service loads event catalogs from the platform API with a read-through cache.
type Service struct {
	Client platform.Client
	Cache  *Cache
	Logger zerolog.Logger
}

func cacheKey(eventID string) string {
	return "catalog:event:" + eventID
}

// Get returns the validated catalog for an event. Cache failures degrade to a
// direct fetch; they never fail the request.
func (s *Service) Get(ctx context.Context, eventID string) (EventCatalog, error) {
	if s == nil || s.Client == nil {
		return EventCatalog{}, errors.New("catalog: service not configured")
	}
	if eventID == "" {
		return EventCatalog{}, fmt.Errorf("%w: event id is required", ErrInvalidEvent)
	}

	var cached platform.Event
	found, err := s.Cache.GetJSON(ctx, cacheKey(eventID), &cached)
	if err != nil {
		s.Logger.Warn().Err(err).Str("event_id", eventID).Msg("catalog cache read failed")
	}
	if found {
		if catalog, err := FromEvent(cached); err == nil {
			return catalog, nil
		}
		// a stale or malformed cache entry falls through to a fresh fetch
	}

	ev, err := s.Client.GetEvent(ctx, eventID)
	if err != nil {
		return EventCatalog{}, fmt.Errorf("catalog: fetch event %s: %w", eventID, err)
	}
	catalog, err := FromEvent(ev)
	if err != nil {
		return EventCatalog{}, err
	}
	if err := s.Cache.SetJSON(ctx, cacheKey(eventID), ev); err != nil {
		s.Logger.Warn().Err(err).Str("event_id", eventID).Msg("catalog cache write failed")
	}
	return catalog, nil
}
