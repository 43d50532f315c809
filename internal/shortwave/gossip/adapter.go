// Package gossip carries StationAdvertisement and ReleaseRequest messages
// between peers over gossipsub, on two named topics. The node shape (a
// libp2p host plus a map of joined topics and subscriptions) follows
// orbas1-Synnergy's core.Node struct; the envelope's tagged-union JSON shape
// keeps both message kinds on one topic pair without a second decoder.
package gossip

import (
	"context"
	"log/slog"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"

	swerrors "github.com/alxayo/shortwave/internal/errors"
	"github.com/alxayo/shortwave/internal/logger"
	"github.com/alxayo/shortwave/internal/shortwave/domain"
)

const (
	advertiseTopicName = "shortwave/advertise/v1"
	releaseTopicName   = "shortwave/release/v1"

	outboundQueueCapacity = 128
)

type outboundMsg struct {
	topic *pubsub.Topic
	data  []byte
}

// Adapter joins the advertise and release topics on one gossipsub instance
// and bridges them to a Registry. Outbound publishes are queued through a
// bounded channel so a slow or stalled libp2p send can never block the
// Advertisement Publisher's heartbeat goroutine; a full queue drops the
// message and logs, the same fire-and-forget posture as the teacher's
// media.Stream.BroadcastMessage slow-subscriber handling.
type Adapter struct {
	host host.Host
	ps   *pubsub.PubSub

	advertiseTopic *pubsub.Topic
	releaseTopic   *pubsub.Topic
	advertiseSub   *pubsub.Subscription
	releaseSub     *pubsub.Subscription

	registry registryInboundTarget
	log      *slog.Logger

	outbound chan outboundMsg
}

// registryInboundTarget is the full surface the adapter needs from the
// registry to dispatch inbound gossip.
type registryInboundTarget interface {
	AcceptAdvertisement(domain.StationAdvertisement) (domain.StationAssignment, error)
	ReleaseByRequest(domain.ReleaseRequest) bool
}

// New wraps an already-constructed libp2p host with a gossipsub router and
// joins both topics. The caller owns the host's lifecycle (bootstrap,
// mDNS, listen addrs); New only adds pubsub on top of it.
func New(ctx context.Context, h host.Host, registry registryInboundTarget, log *slog.Logger) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, swerrors.NewTransportError("gossip.new_gossipsub", err)
	}

	advTopic, err := ps.Join(advertiseTopicName)
	if err != nil {
		return nil, swerrors.NewTransportError("gossip.join_advertise", err)
	}
	relTopic, err := ps.Join(releaseTopicName)
	if err != nil {
		return nil, swerrors.NewTransportError("gossip.join_release", err)
	}
	advSub, err := advTopic.Subscribe()
	if err != nil {
		return nil, swerrors.NewTransportError("gossip.subscribe_advertise", err)
	}
	relSub, err := relTopic.Subscribe()
	if err != nil {
		return nil, swerrors.NewTransportError("gossip.subscribe_release", err)
	}

	a := &Adapter{
		host:           h,
		ps:             ps,
		advertiseTopic: advTopic,
		releaseTopic:   relTopic,
		advertiseSub:   advSub,
		releaseSub:     relSub,
		registry:       registry,
		log:            log.With("component", "gossip"),
		outbound:       make(chan outboundMsg, outboundQueueCapacity),
	}
	return a, nil
}

// Run drives the inbound read loops and the outbound send loop until ctx is
// cancelled.
func (a *Adapter) Run(ctx context.Context) {
	go a.readLoop(ctx, a.advertiseSub)
	go a.readLoop(ctx, a.releaseSub)
	a.sendLoop(ctx)
}

func (a *Adapter) sendLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-a.outbound:
			if err := m.topic.Publish(ctx, m.data); err != nil {
				a.log.Warn("gossip publish failed", "topic", m.topic.String(), "error", err)
			}
		}
	}
}

func (a *Adapter) readLoop(ctx context.Context, sub *pubsub.Subscription) {
	selfID := a.host.ID()
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.log.Warn("gossip read failed", "error", err)
			continue
		}
		if msg.ReceivedFrom == selfID {
			continue
		}
		peerLog := logger.WithPeer(a.log, msg.ReceivedFrom.String(), sub.Topic())
		a.dispatch(msg.Data, peerLog)
	}
}

func (a *Adapter) dispatch(raw []byte, log *slog.Logger) {
	kind, ad, rel, err := decode(raw)
	if err != nil {
		log.Warn("discarding malformed gossip message", "error", err)
		return
	}
	switch kind {
	case kindAdvertise:
		if _, err := a.registry.AcceptAdvertisement(ad); err != nil {
			log.Debug("inbound advertisement not applied", "station_id", ad.StationID, "error", err)
		}
	case kindRelease:
		if !a.registry.ReleaseByRequest(rel) {
			log.Debug("inbound release not applied", "station_id", rel.StationID, "frequency", rel.Frequency)
		}
	}
}

// PublishAdvertisement encodes and queues ad for the advertise topic.
// Non-blocking: a full outbound queue drops the message and logs.
func (a *Adapter) PublishAdvertisement(ad domain.StationAdvertisement) error {
	data, err := encodeAdvertise(ad)
	if err != nil {
		return swerrors.NewInvalidInput("gossip.encode_advertise", err)
	}
	return a.enqueue(outboundMsg{topic: a.advertiseTopic, data: data})
}

// PublishRelease encodes and queues rel for the release topic.
func (a *Adapter) PublishRelease(rel domain.ReleaseRequest) error {
	data, err := encodeRelease(rel)
	if err != nil {
		return swerrors.NewInvalidInput("gossip.encode_release", err)
	}
	return a.enqueue(outboundMsg{topic: a.releaseTopic, data: data})
}

func (a *Adapter) enqueue(m outboundMsg) error {
	select {
	case a.outbound <- m:
		return nil
	default:
		a.log.Warn("outbound gossip queue full, dropping message", "topic", m.topic.String())
		return nil
	}
}

// Close leaves both topics and cancels their subscriptions. The underlying
// host is owned by the caller and is not closed here.
func (a *Adapter) Close() {
	a.advertiseSub.Cancel()
	a.releaseSub.Cancel()
	_ = a.advertiseTopic.Close()
	_ = a.releaseTopic.Close()
}

// ConnectBootstrap dials each bootstrap peer, logging and continuing past
// any that are unreachable (spec: bootstrap failures are non-fatal).
func (a *Adapter) ConnectBootstrap(ctx context.Context, peers []peer.AddrInfo) {
	for _, pi := range peers {
		if err := a.host.Connect(ctx, pi); err != nil {
			a.log.Warn("bootstrap peer unreachable", "peer_id", pi.ID.String(), "error", err)
		}
	}
}
