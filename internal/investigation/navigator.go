package investigation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"dcia/internal/errors"
	"dcia/internal/models"
)

// NavigationState tracks where the taxonomy navigation currently stands.
type NavigationState string

const (
	// StateIdle means no crime subtype has been selected yet.
	StateIdle NavigationState = "idle"
	// StateLoading means an evidence fetch is in flight.
	StateLoading NavigationState = "loading"
	// StateReady means the evidence list for the active pair is available.
	StateReady NavigationState = "ready"
	// StateError means the last fetch failed. The item list is empty and a
	// user-displayable message is set. Re-navigating retries.
	StateError NavigationState = "error"
)

// ErrValidation flags a request rejected before any collaborator call, such
// as an empty question or a missing navigation key.
var ErrValidation = errors.NewSentinel("validation failed")

// CatalogClient is the evidence-catalog collaborator consumed by the
// navigator.
type CatalogClient interface {
	ListCrimeSubtypes(ctx context.Context) ([]string, error)
	ListEvidence(ctx context.Context, subtype string, device models.DeviceType) ([]models.EvidenceItem, error)
}

// NavigationSnapshot is a consistent view of the navigator state.
type NavigationSnapshot struct {
	State        NavigationState
	Subtype      string
	Device       models.DeviceType
	Artefacts    []models.Artefact
	ErrorMessage string
}

// Navigator owns the active (crime subtype, device) pair and the evidence
// list fetched for it.
//
// The state is guarded by a mutex; the catalog call itself happens outside
// the lock so that concurrent navigations do not serialize on the network.
// A completed fetch is committed only if the (subtype, device) key is still
// the active one, so a slow stale response never overwrites a newer state.
type Navigator struct {
	catalog CatalogClient
	logger  *slog.Logger

	mu           sync.Mutex
	state        NavigationState
	subtype      string
	device       models.DeviceType
	artefacts    []models.Artefact
	errorMessage string
}

func NewNavigator(catalog CatalogClient, logger *slog.Logger) *Navigator {
	return &Navigator{
		catalog: catalog,
		logger:  logger.With("source", "Navigator"),
		state:   StateIdle,
	}
}

// SetSubtype changes the active crime subtype. An empty subtype transitions
// to Idle and clears the items; otherwise the evidence list is re-fetched
// with the currently active device, defaulting to android when none has been
// selected yet.
func (n *Navigator) SetSubtype(ctx context.Context, subtype string) error {
	subtype = models.NormalizeSubtype(subtype)
	if subtype == "" {
		n.mu.Lock()
		n.state = StateIdle
		n.subtype = ""
		n.artefacts = nil
		n.errorMessage = ""
		n.mu.Unlock()
		return nil
	}
	n.mu.Lock()
	device := n.device
	n.mu.Unlock()
	if device == "" {
		device = models.DeviceAndroid
	}
	return n.Navigate(ctx, subtype, device)
}

// SelectDevice switches the active device type and re-fetches the evidence
// list for the current subtype. It fails with ErrValidation when no subtype
// has been selected.
func (n *Navigator) SelectDevice(ctx context.Context, device models.DeviceType) error {
	n.mu.Lock()
	subtype := n.subtype
	n.mu.Unlock()
	if subtype == "" {
		return errors.Wrap(ErrValidation, "select device without subtype", slog.String("device", string(device)))
	}
	return n.Navigate(ctx, subtype, device)
}

// Navigate re-enters Loading for the given pair and fetches the evidence
// list. It always settles in Ready or Error for whichever pair is active at
// resolution time; a superseded fetch is discarded on arrival.
func (n *Navigator) Navigate(ctx context.Context, subtype string, device models.DeviceType) error {
	subtype = models.NormalizeSubtype(subtype)
	if subtype == "" {
		return errors.Wrap(ErrValidation, "navigate without subtype")
	}

	n.mu.Lock()
	n.state = StateLoading
	n.subtype = subtype
	n.device = device
	n.artefacts = nil
	n.errorMessage = ""
	n.mu.Unlock()

	items, err := n.catalog.ListEvidence(ctx, subtype, device)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subtype != subtype || n.device != device {
		// A newer navigation superseded this fetch while it was in flight.
		n.logger.LogAttrs(ctx, slog.LevelDebug, "discarding stale evidence fetch",
			slog.String("subtype", subtype), slog.String("device", string(device)))
		return nil
	}
	if err != nil {
		n.state = StateError
		n.artefacts = nil
		n.errorMessage = fmt.Sprintf("Could not load evidence for %s on %s. Please try again.", subtype, device)
		n.logger.LogAttrs(ctx, slog.LevelError, "evidence fetch failed",
			slog.String("subtype", subtype), slog.String("device", string(device)), errors.SlogError(err))
		return nil
	}
	n.state = StateReady
	n.artefacts = mapArtefacts(items)
	return nil
}

// Snapshot returns a copy of the current navigation state. The artefact slice
// is copied so that callers cannot alias the navigator's internal list.
func (n *Navigator) Snapshot() NavigationSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	artefacts := make([]models.Artefact, len(n.artefacts))
	copy(artefacts, n.artefacts)
	return NavigationSnapshot{
		State:        n.state,
		Subtype:      n.subtype,
		Device:       n.device,
		Artefacts:    artefacts,
		ErrorMessage: n.errorMessage,
	}
}

// mapArtefacts converts raw catalog items into their display form. Items
// without any location on the active device are excluded; they exist in the
// catalog but not for this device.
func mapArtefacts(items []models.EvidenceItem) []models.Artefact {
	artefacts := make([]models.Artefact, 0, len(items))
	for _, item := range items {
		if len(item.Locations) == 0 {
			continue
		}
		artefacts = append(artefacts, models.Artefact{
			Name:            item.Name,
			Significance:    item.Significance,
			PrimaryLocation: item.Locations[0],
			AlsoFoundAt:     strings.Join(item.Locations[1:], ", "),
		})
	}
	return artefacts
}
