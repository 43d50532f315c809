// Package registry implements the distributed frequency-assignment
// registry: the in-memory map of frequency-key to assignment, gated on
// signature, ownership, and per-owner cap invariants.
//
// Locking generalizes alxayo-rtmp-go/internal/rtmp/server.Registry's
// RWMutex-guarded map (CreateStream/GetStream/DeleteStream) to the
// accept/release/expire/import operations required here; the conflict
// check and the insert are performed under a single write-lock critical
// section so a concurrent accept for the same key cannot interleave with
// it (spec §5).
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	swerrors "github.com/alxayo/shortwave/internal/errors"
	"github.com/alxayo/shortwave/internal/shortwave/broadcast"
	"github.com/alxayo/shortwave/internal/shortwave/domain"
	"github.com/alxayo/shortwave/internal/shortwave/freq"
	"github.com/alxayo/shortwave/internal/shortwave/swcrypto"
)

// Clock abstracts current time so tests can simulate TTL expiry without
// sleeping (spec §8 scenario 1 advances simulated time past expires_at).
type Clock func() time.Time

// Registry holds all current assignments keyed by normalized frequency.
type Registry struct {
	maxPerOwner int
	hub         *broadcast.Hub
	now         Clock

	mu      sync.RWMutex
	entries map[freq.Key]*domain.StationAssignment

	seenMu sync.Mutex
	seen   map[uuid.UUID]struct{}
}

// New creates an empty registry. hub may be nil in tests that don't care
// about emitted events.
func New(maxFrequenciesPerOwner int, hub *broadcast.Hub) *Registry {
	return &Registry{
		maxPerOwner: maxFrequenciesPerOwner,
		hub:         hub,
		now:         time.Now,
		entries:     make(map[freq.Key]*domain.StationAssignment),
		seen:        make(map[uuid.UUID]struct{}),
	}
}

// WithClock overrides the clock used for created_at/expiry comparisons
// (test-only hook).
func (r *Registry) WithClock(c Clock) *Registry {
	r.now = c
	return r
}

func (r *Registry) emit(kind domain.RegistryEventKind, a domain.StationAssignment) {
	if r.hub == nil {
		return
	}
	r.hub.Registry.Publish(domain.RegistryEvent{Kind: kind, Assignment: a})
}

// AcceptAdvertisement runs the full accept_advertisement sequence from
// spec §4.3. On any outcome other than InvalidSignature the error returned
// (if any) describes an authoritative, non-fatal state that the caller
// (typically the Advertisement Publisher or the Gossip Adapter) should log
// and potentially retry on a later tick.
func (r *Registry) AcceptAdvertisement(ad domain.StationAdvertisement) (domain.StationAssignment, error) {
	key, err := freq.NormalizeString(ad.Frequency)
	if err != nil {
		return domain.StationAssignment{}, swerrors.NewInvalidInput("accept_advertisement.normalize", err)
	}

	// Dedup: short-circuit idempotent replays before touching the map.
	r.seenMu.Lock()
	_, already := r.seen[ad.MessageID]
	r.seenMu.Unlock()
	if already {
		r.mu.RLock()
		existing, ok := r.entries[key]
		r.mu.RUnlock()
		if ok {
			return *existing, nil
		}
		// Message seen but no longer present (e.g. released/expired since);
		// idempotent success carries no assignment to report.
		return domain.StationAssignment{}, nil
	}

	// Authenticate over the canonical bytes, using the timestamp exactly as
	// the sender formatted it (RFC3339, seconds precision).
	atStr := ad.AdvertisedAt.UTC().Format(time.RFC3339)
	msg := swcrypto.CanonicalizeAd(string(key), ad.StationID.String(), ad.StreamURL, atStr, ad.TTLSeconds)
	if !swcrypto.Verify(ad.OwnerPublicKey, msg, ad.Signature) {
		return domain.StationAssignment{}, swerrors.NewInvalidSignature("accept_advertisement", nil)
	}

	r.mu.Lock()
	existing, hasExisting := r.entries[key]

	if hasExisting {
		if existing.StationID != ad.StationID {
			r.mu.Unlock()
			return domain.StationAssignment{}, swerrors.NewFrequencyConflict(string(key), existing.StationID.String())
		}
		if existing.OwnerPublicKey != ad.OwnerPublicKey {
			r.mu.Unlock()
			return domain.StationAssignment{}, swerrors.NewOwnerMismatch(string(key))
		}
	} else {
		if r.maxPerOwner > 0 && r.countByOwnerLocked(ad.OwnerPublicKey) >= r.maxPerOwner {
			r.mu.Unlock()
			return domain.StationAssignment{}, swerrors.NewOwnerCapExceeded(ad.OwnerPublicKey, r.maxPerOwner)
		}
	}

	createdAt := r.now()
	if hasExisting {
		createdAt = existing.CreatedAt
	}

	assignment := domain.StationAssignment{
		StationID:      ad.StationID,
		Frequency:      key,
		Name:           ad.Name,
		StreamURL:      ad.StreamURL,
		CreatedAt:      createdAt,
		LastSeen:       ad.AdvertisedAt,
		ExpiresAt:      ad.AdvertisedAt.Add(time.Duration(ad.TTLSeconds) * time.Second),
		OwnerPublicKey: ad.OwnerPublicKey,
	}
	r.entries[key] = &assignment
	r.mu.Unlock()

	r.seenMu.Lock()
	r.seen[ad.MessageID] = struct{}{}
	r.seenMu.Unlock()

	r.emit(domain.RegistryEventUpsert, assignment)
	return assignment, nil
}

// Release removes the entry at frequencyKey if stationID matches and
// signatureB64 verifies under the *current* entry's owner key. Any failure
// path returns false silently: the operation is idempotent from the
// caller's perspective (spec §4.3).
func (r *Registry) Release(frequencyKey freq.Key, stationID uuid.UUID, signatureB64 string) bool {
	r.mu.Lock()
	existing, ok := r.entries[frequencyKey]
	if !ok || existing.StationID != stationID {
		r.mu.Unlock()
		return false
	}
	msg := swcrypto.CanonicalizeRelease(string(frequencyKey), stationID.String())
	if !swcrypto.Verify(existing.OwnerPublicKey, msg, signatureB64) {
		r.mu.Unlock()
		return false
	}
	removed := *existing
	delete(r.entries, frequencyKey)
	r.mu.Unlock()

	r.emit(domain.RegistryEventDelete, removed)
	return true
}

// ReleaseByRequest normalizes rel.Frequency and delegates to Release. It
// exists so collaborators holding only a domain.ReleaseRequest (the Gossip
// Adapter, the future HTTP release endpoint) don't need to import freq
// themselves just to call Release.
func (r *Registry) ReleaseByRequest(rel domain.ReleaseRequest) bool {
	key, err := freq.NormalizeString(rel.Frequency)
	if err != nil {
		return false
	}
	return r.Release(key, rel.StationID, rel.Signature)
}

// Expire removes every entry whose expires_at is at or before now, emitting
// a delete event for each. Safe to call concurrently with Accept: the
// write lock ensures a simultaneous acceptance with a newer expires_at
// always wins regardless of interleaving, because Expire only removes
// entries whose expires_at (as observed under the lock) has already
// passed.
func (r *Registry) Expire() {
	now := r.now()

	r.mu.Lock()
	var removed []domain.StationAssignment
	for key, a := range r.entries {
		if !a.ExpiresAt.After(now) {
			removed = append(removed, *a)
			delete(r.entries, key)
		}
	}
	r.mu.Unlock()

	for _, a := range removed {
		r.emit(domain.RegistryEventDelete, a)
	}
}

// Snapshot returns every entry whose expires_at is in the future, enforcing
// expiry at the read boundary so a stale row is never served between
// sweeps.
func (r *Registry) Snapshot() []domain.StationAssignment {
	now := r.now()
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StationAssignment, 0, len(r.entries))
	for _, a := range r.entries {
		if a.ExpiresAt.After(now) {
			out = append(out, *a)
		}
	}
	return out
}

// Get returns whatever is present at key with no expiry filter; callers
// that specifically want to see an about-to-expire row may use this.
func (r *Registry) Get(key freq.Key) (domain.StationAssignment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.entries[key]
	if !ok {
		return domain.StationAssignment{}, false
	}
	return *a, true
}

// Import adopts an incoming assignment unconditionally (peer catch-up /
// inbound gossip carrying full rows rather than signed advertisements).
// This is intentionally last-writer-wins and does not verify signatures:
// the sender is trusted to only forward previously-verified assignments.
// New, unverified rows must enter only via AcceptAdvertisement.
func (r *Registry) Import(a domain.StationAssignment) {
	key := a.Frequency
	r.mu.Lock()
	r.entries[key] = &a
	r.mu.Unlock()
	r.emit(domain.RegistryEventUpsert, a)
}

// countByOwnerLocked counts assignments owned by ownerKey. Caller must hold
// at least a read lock (accept_advertisement already holds the write lock).
func (r *Registry) countByOwnerLocked(ownerKey string) int {
	n := 0
	for _, a := range r.entries {
		if a.OwnerPublicKey == ownerKey {
			n++
		}
	}
	return n
}
