// Package domain holds the wire/data-model types shared by the registry,
// broadcast hub, gossip adapter, and HTTP/IPC collaborators, so that none of
// those packages need to import each other just to agree on a shape.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/alxayo/shortwave/internal/shortwave/freq"
)

// StationAdvertisement is a self-describing, signed claim by an owner that
// a station should hold a frequency for a TTL.
type StationAdvertisement struct {
	MessageID      uuid.UUID `json:"message_id"`
	StationID      uuid.UUID `json:"station_id"`
	Frequency      string    `json:"frequency"` // raw decimal literal, preserved arbitrary precision
	Name           string    `json:"name"`
	StreamURL      string    `json:"stream_url"`
	AdvertisedAt   time.Time `json:"advertised_at"`
	TTLSeconds     uint32    `json:"ttl_seconds"`
	OwnerPublicKey string    `json:"owner_public_key"` // base64, 32 bytes
	Signature      string    `json:"signature"`        // base64, 64 bytes
}

// StationAssignment is the authoritative local view of who holds a
// frequency right now.
type StationAssignment struct {
	StationID      uuid.UUID `json:"station_id"`
	Frequency      freq.Key  `json:"frequency"`
	Name           string    `json:"name"`
	StreamURL      string    `json:"stream_url"`
	CreatedAt      time.Time `json:"created_at"`
	LastSeen       time.Time `json:"last_seen"`
	ExpiresAt      time.Time `json:"expires_at"`
	OwnerPublicKey string    `json:"owner_public_key"`
}

// ReleaseRequest is an authenticated deletion of an assignment.
type ReleaseRequest struct {
	StationID uuid.UUID `json:"station_id"`
	Frequency string    `json:"frequency"`
	Signature string    `json:"signature"`
	Reason    string    `json:"reason,omitempty"`
}

// RegistryEventKind distinguishes upsert from delete registry events.
type RegistryEventKind string

const (
	RegistryEventUpsert RegistryEventKind = "upsert"
	RegistryEventDelete RegistryEventKind = "delete"
)

// RegistryEvent is emitted on the registry-events broadcast channel
// whenever the registry map changes.
type RegistryEvent struct {
	Kind       RegistryEventKind  `json:"kind"`
	Assignment StationAssignment `json:"assignment"`
}

// NowPlaying is the last-write-wins now-playing metadata cell.
type NowPlaying struct {
	Title     string    `json:"title,omitempty"`
	Artist    string    `json:"artist,omitempty"`
	Album     string    `json:"album,omitempty"`
	CoverURL  string    `json:"cover_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PeerInfo is a loose, non-authoritative directory entry learned from
// gossip or static configuration.
type PeerInfo struct {
	NodeID     string    `json:"node_id"`
	APIBaseURL string    `json:"api_base_url"`
	LastSeen   time.Time `json:"last_seen"`
}
