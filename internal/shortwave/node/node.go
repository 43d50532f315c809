// Package node assembles every collaborator (registry, hub, stores,
// publisher, gossip adapter, sweeper, HTTP server, IPC listeners) into one
// runnable unit, the same New/Start/Stop shape as
// alxayo-rtmp-go/internal/rtmp/server.Server.
package node

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/google/uuid"

	"github.com/alxayo/shortwave/internal/shortwave/blocklist"
	"github.com/alxayo/shortwave/internal/shortwave/broadcast"
	"github.com/alxayo/shortwave/internal/shortwave/config"
	"github.com/alxayo/shortwave/internal/shortwave/gossip"
	"github.com/alxayo/shortwave/internal/shortwave/httpapi"
	"github.com/alxayo/shortwave/internal/shortwave/ipc"
	"github.com/alxayo/shortwave/internal/shortwave/keyfile"
	"github.com/alxayo/shortwave/internal/shortwave/nowplaying"
	"github.com/alxayo/shortwave/internal/shortwave/publisher"
	"github.com/alxayo/shortwave/internal/shortwave/registry"
	"github.com/alxayo/shortwave/internal/shortwave/sweeper"
	"github.com/alxayo/shortwave/internal/shortwave/swcrypto"
)

// Node owns the full lifecycle of one running shortwave process.
type Node struct {
	cfg     *config.Config
	log     *slog.Logger
	version string

	hub        *broadcast.Hub
	registry   *registry.Registry
	nowPlaying *nowplaying.Store
	blocklist  *blocklist.Store

	httpServer *http.Server
	p2pHost    host.Host
	gossipAdp  *gossip.Adapter
	mdnsSvc    mdns.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles a Node from cfg but does not start any goroutines or
// listeners yet. version is reported verbatim by GET /api/v1/healthz.
func New(cfg *config.Config, log *slog.Logger, version string) *Node {
	if log == nil {
		log = slog.Default()
	}
	hub := broadcast.NewHub()
	reg := registry.New(cfg.MaxFrequenciesPerOwner, hub)
	np := nowplaying.New(hub)
	bl := blocklist.New()

	return &Node{
		cfg:        cfg,
		log:        log.With("node_id", cfg.NodeID),
		version:    version,
		hub:        hub,
		registry:   reg,
		nowPlaying: np,
		blocklist:  bl,
	}
}

// Start brings up every configured collaborator: the libp2p host and
// gossip adapter, the advertisement publisher (if a station is
// configured), the expiry sweeper, the HTTP server, the IPC listeners, and
// the blocklist fetcher. Returns once the HTTP listener is bound; all
// background loops continue in goroutines tracked by n.wg.
func (n *Node) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	p2pHost, err := n.buildHost()
	if err != nil {
		return fmt.Errorf("node: build libp2p host: %w", err)
	}
	n.p2pHost = p2pHost

	adapter, err := gossip.New(runCtx, p2pHost, n.registry, n.log)
	if err != nil {
		return fmt.Errorf("node: build gossip adapter: %w", err)
	}
	n.gossipAdp = adapter
	n.spawn(func() { adapter.Run(runCtx) })

	if len(n.cfg.P2PBootstrapAddrs) > 0 {
		peers := resolveBootstrapPeers(n.cfg.P2PBootstrapAddrs, n.log)
		adapter.ConnectBootstrap(runCtx, peers)
	}

	if n.cfg.P2PEnableMDNS {
		svc := mdns.NewMdnsService(p2pHost, "shortwave", mdnsNotifee{host: p2pHost, log: n.log})
		if err := svc.Start(); err != nil {
			n.log.Warn("mDNS discovery failed to start", "error", err)
		} else {
			n.mdnsSvc = svc
		}
	}

	if n.cfg.Station != nil {
		pub, err := n.stationPublisher(adapter)
		if err != nil {
			return fmt.Errorf("node: build publisher: %w", err)
		}
		n.spawn(func() { pub.Run(runCtx) })
	}

	n.spawn(func() { sweeper.Run(runCtx, n.registry, 15*time.Second) })

	if n.cfg.BlocklistURL != "" {
		n.spawn(func() {
			blocklist.Refresh(runCtx, n.cfg.BlocklistURL, time.Duration(n.cfg.BlocklistRefreshSecs)*time.Second, n.blocklist, n.log)
		})
	}

	if n.cfg.NowPlayingSocketPath != "" {
		n.spawn(func() {
			if err := ipc.ListenNowPlaying(runCtx, n.cfg.NowPlayingSocketPath, n.nowPlaying, n.log); err != nil {
				n.log.Error("now-playing IPC listener stopped", "error", err)
			}
		})
	}
	if n.cfg.AudioSocketPath != "" {
		n.spawn(func() {
			if err := ipc.ListenAudio(runCtx, n.cfg.AudioSocketPath, n.hub, n.log); err != nil {
				n.log.Error("audio IPC listener stopped", "error", err)
			}
		})
	}

	handler := httpapi.New(n.registry, n.nowPlaying, n.blocklist, n.hub, n.cfg.SourceToken, n.cfg.NodeID, n.cfg.PublicURL, n.version, n.log)
	ln, err := net.Listen("tcp", n.cfg.Bind)
	if err != nil {
		return fmt.Errorf("node: bind %s: %w", n.cfg.Bind, err)
	}
	n.httpServer = &http.Server{Handler: handler}
	n.spawn(func() {
		if err := n.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			n.log.Error("http server stopped", "error", err)
		}
	})

	n.log.Info("node started", "bind", n.cfg.Bind, "peer_id", p2pHost.ID().String())
	return nil
}

func (n *Node) spawn(fn func()) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		fn()
	}()
}

// Stop cancels every background loop and closes the listeners, waiting up
// to the caller's context deadline for a clean shutdown.
func (n *Node) Stop(ctx context.Context) error {
	if n.cancel != nil {
		n.cancel()
	}
	if n.httpServer != nil {
		_ = n.httpServer.Shutdown(ctx)
	}
	if n.gossipAdp != nil {
		n.gossipAdp.Close()
	}
	if n.mdnsSvc != nil {
		_ = n.mdnsSvc.Close()
	}
	if n.p2pHost != nil {
		_ = n.p2pHost.Close()
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Node) buildHost() (host.Host, error) {
	var opts []libp2p.Option
	if len(n.cfg.P2PListenAddrs) > 0 {
		opts = append(opts, libp2p.ListenAddrStrings(n.cfg.P2PListenAddrs...))
	}
	if n.cfg.P2PKeyPath != "" {
		priv, err := keyfile.Load(n.cfg.P2PKeyPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, libp2p.Identity(priv))
	}
	return libp2p.New(opts...)
}

func (n *Node) stationPublisher(adapter *gossip.Adapter) (*publisher.Publisher, error) {
	stationID, err := uuid.Parse(n.cfg.Station.StationID)
	if err != nil {
		return nil, fmt.Errorf("station_id: %w", err)
	}

	var priv ed25519.PrivateKey
	var pub ed25519.PublicKey
	if n.cfg.OwnerSecretKeyB64 != "" {
		seed, err := base64.StdEncoding.DecodeString(n.cfg.OwnerSecretKeyB64)
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("owner_secret_key: invalid base64 Ed25519 seed")
		}
		priv = ed25519.NewKeyFromSeed(seed)
		pub = priv.Public().(ed25519.PublicKey)
	} else {
		var genErr error
		pub, priv, genErr = swcrypto.GenerateKey()
		if genErr != nil {
			return nil, genErr
		}
		n.log.Warn("no owner_secret_key configured, generated an ephemeral identity for this run")
	}

	station := publisher.StationConfig{
		StationID:       stationID,
		Frequency:       n.cfg.Station.Frequency,
		Name:            n.cfg.Station.Name,
		StreamURL:       n.cfg.PublicURL + "/stream",
		TTLSeconds:      n.cfg.AdvertiseTTLSeconds,
		OwnerPublicKey:  pub,
		OwnerPrivateKey: priv,
	}
	return publisher.New(station, n.registry, adapter, n.log, 2), nil
}

func resolveBootstrapPeers(addrs []string, log *slog.Logger) []peer.AddrInfo {
	var infos []peer.AddrInfo
	for _, raw := range addrs {
		maddr, err := ma.NewMultiaddr(raw)
		if err != nil {
			log.Warn("invalid bootstrap multiaddr", "addr", raw, "error", err)
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(maddr)
		if err != nil {
			log.Warn("invalid bootstrap peer address", "addr", raw, "error", err)
			continue
		}
		infos = append(infos, *info)
	}
	return infos
}

// mdnsNotifee connects to peers discovered on the local network segment.
type mdnsNotifee struct {
	host host.Host
	log  *slog.Logger
}

func (m mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if err := m.host.Connect(context.Background(), pi); err != nil {
		m.log.Debug("mDNS peer connect failed", "peer_id", pi.ID.String(), "error", err)
	}
}
