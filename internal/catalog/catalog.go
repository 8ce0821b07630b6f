package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-stagepass/internal/platform"
	"github.com/noah-isme/backend-stagepass/internal/pricing"
)

// ErrInvalidEvent is returned when an event payload fails boundary validation.
var ErrInvalidEvent = errors.New("catalog: invalid event")

// EventCatalog is a validated, engine-ready view of one event's offerings.
type EventCatalog struct {
	EventID string
	Type    pricing.EventType
	Items   pricing.Catalog
}

// FromEvent validates a raw platform event payload and converts it into the
// typed catalog the pricing engine consumes. Validation happens here, at the
// deserialization boundary, so the engine itself never sees malformed data.
func FromEvent(ev platform.Event) (EventCatalog, error) {
	eventType, err := parseEventType(ev.Type)
	if err != nil {
		return EventCatalog{}, err
	}

	seen := make(map[string]struct{}, len(ev.TicketOptions)+len(ev.AddOns))
	out := EventCatalog{EventID: ev.ID, Type: eventType}

	for _, opt := range ev.TicketOptions {
		name := strings.TrimSpace(opt.Name)
		if err := checkName(seen, name); err != nil {
			return EventCatalog{}, err
		}
		if opt.Price.IsNegative() || opt.MinimumDonation.IsNegative() {
			return EventCatalog{}, fmt.Errorf("%w: ticket %q has a negative amount", ErrInvalidEvent, name)
		}
		out.Items.Tickets = append(out.Items.Tickets, pricing.CatalogItem{
			Name:            name,
			Price:           opt.Price,
			MinimumDonation: opt.MinimumDonation,
		})
	}
	for _, addOn := range ev.AddOns {
		name := strings.TrimSpace(addOn.Name)
		if err := checkName(seen, name); err != nil {
			return EventCatalog{}, err
		}
		if addOn.Price.IsNegative() {
			return EventCatalog{}, fmt.Errorf("%w: add-on %q has a negative price", ErrInvalidEvent, name)
		}
		out.Items.AddOns = append(out.Items.AddOns, pricing.CatalogItem{
			Name:  name,
			Price: addOn.Price,
		})
	}
	return out, nil
}

func parseEventType(raw string) (pricing.EventType, error) {
	switch pricing.EventType(strings.ToLower(strings.TrimSpace(raw))) {
	case pricing.EventTicketed:
		return pricing.EventTicketed, nil
	case pricing.EventFundraiser:
		return pricing.EventFundraiser, nil
	default:
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, raw)
	}
}

func checkName(seen map[string]struct{}, name string) error {
	if name == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidEvent)
	}
	if _, dup := seen[name]; dup {
		return fmt.Errorf("%w: duplicate item name %q", ErrInvalidEvent, name)
	}
	seen[name] = struct{}{}
	return nil
}
