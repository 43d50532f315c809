// Package publisher runs the periodic heartbeat loop that advertises a
// locally-owned station: it signs a fresh StationAdvertisement, submits it
// to the local Registry Core, and on success forwards it to the Gossip
// Adapter's outbound queue.
//
// Signing is offloaded to a small bounded worker pool so it never shares a
// goroutine with the tick loop's I/O waits, the same isolation pattern as
// alxayo-rtmp-go/internal/rtmp/server/hooks.executionPool (a buffered
// channel of worker slots, acquired before doing the work and released
// after).
package publisher

import (
	"context"
	"crypto/ed25519"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alxayo/shortwave/internal/logger"
	"github.com/alxayo/shortwave/internal/shortwave/domain"
	"github.com/alxayo/shortwave/internal/shortwave/freq"
	"github.com/alxayo/shortwave/internal/shortwave/swcrypto"
)

// Registry is the subset of registry.Registry the publisher needs.
type Registry interface {
	AcceptAdvertisement(domain.StationAdvertisement) (domain.StationAssignment, error)
}

// GossipOutbound is the subset of gossip.Adapter the publisher needs.
type GossipOutbound interface {
	PublishAdvertisement(domain.StationAdvertisement) error
}

// StationConfig describes the locally-owned station this node advertises.
type StationConfig struct {
	StationID  uuid.UUID
	Frequency  string // raw decimal literal
	Name       string
	StreamURL  string
	TTLSeconds uint32

	OwnerPublicKey  ed25519.PublicKey
	OwnerPrivateKey ed25519.PrivateKey
}

// Publisher owns the heartbeat loop for one locally-owned station.
type Publisher struct {
	station  StationConfig
	registry Registry
	gossip   GossipOutbound
	log      *slog.Logger

	signJobs chan signJob
	workers  int
	stopW    chan struct{}
}

type signJob struct {
	frequencyKey string
	stationID    string
	streamURL    string
	at           time.Time
	ttl          uint32
	result       chan string // base64 signature
}

// New creates a publisher for station with the given collaborators. workers
// bounds the signing pool concurrency (signing is CPU-bound; a small pool
// keeps it off the I/O scheduler without spawning unbounded goroutines).
func New(station StationConfig, reg Registry, gossip GossipOutbound, log *slog.Logger, workers int) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	if workers <= 0 {
		workers = 2
	}
	p := &Publisher{
		station:  station,
		registry: reg,
		gossip:   gossip,
		log:      log.With("component", "publisher", "station_id", station.StationID.String()),
		signJobs: make(chan signJob),
		workers:  workers,
		stopW:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.signWorker()
	}
	return p
}

func (p *Publisher) signWorker() {
	for {
		select {
		case job := <-p.signJobs:
			atStr := job.at.UTC().Format(time.RFC3339)
			msg := swcrypto.CanonicalizeAd(job.frequencyKey, job.stationID, job.streamURL, atStr, job.ttl)
			job.result <- swcrypto.Sign(p.station.OwnerPrivateKey, msg)
		case <-p.stopW:
			return
		}
	}
}

func (p *Publisher) sign(key freq.Key, at time.Time) string {
	job := signJob{
		frequencyKey: string(key),
		stationID:    p.station.StationID.String(),
		streamURL:    p.station.StreamURL,
		at:           at,
		ttl:          p.station.TTLSeconds,
		result:       make(chan string, 1),
	}
	p.signJobs <- job
	return <-job.result
}

// interval computes the heartbeat period: max(ttl/2, 10) seconds.
func interval(ttlSeconds uint32) time.Duration {
	half := time.Duration(ttlSeconds/2) * time.Second
	if half < 10*time.Second {
		return 10 * time.Second
	}
	return half
}

// Run executes the heartbeat loop until ctx is cancelled. It ticks
// immediately on start, then every interval(ttl).
func (p *Publisher) Run(ctx context.Context) {
	defer close(p.stopW)

	tick := func() {
		now := time.Now().UTC().Truncate(time.Second)
		key, err := freq.NormalizeString(p.station.Frequency)
		if err != nil {
			p.log.Error("invalid configured frequency", "frequency", p.station.Frequency, "error", err)
			return
		}

		sig := p.sign(key, now)
		ad := domain.StationAdvertisement{
			MessageID:      uuid.New(),
			StationID:      p.station.StationID,
			Frequency:      p.station.Frequency,
			Name:           p.station.Name,
			StreamURL:      p.station.StreamURL,
			AdvertisedAt:   now,
			TTLSeconds:     p.station.TTLSeconds,
			OwnerPublicKey: swcrypto.EncodePublicKey(p.station.OwnerPublicKey),
			Signature:      sig,
		}

		freqLog := logger.WithFrequency(p.log, string(key), p.station.StationID.String())
		if _, err := p.registry.AcceptAdvertisement(ad); err != nil {
			// FrequencyConflict, OwnerMismatch, and OwnerCapExceeded are all
			// retryable: the next tick may succeed once the conflicting
			// holder expires. InvalidSignature against our own advertisement
			// would indicate a local bug, not a remote condition, but we
			// still only log: the publisher never raises against itself.
			freqLog.Warn("advertisement rejected", "error", err)
			return
		}

		if p.gossip != nil {
			if err := p.gossip.PublishAdvertisement(ad); err != nil {
				freqLog.Warn("gossip publish failed", "error", err)
			}
		}
	}

	tick()
	t := time.NewTicker(interval(p.station.TTLSeconds))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
		}
	}
}
