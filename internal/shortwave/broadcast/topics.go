package broadcast

import "github.com/alxayo/shortwave/internal/shortwave/domain"

// Buffer capacities per spec: registry events are the deepest because a
// slow HTTP/SSE client should see more history before losing events than a
// similarly slow audio consumer, whose drops are just a brief dropout.
const (
	RegistryEventsCapacity = 1024
	NowPlayingCapacity     = 128
	AudioCapacity          = 256
)

// Hub bundles the three independent fan-out channels the core produces.
// Producers (Registry Core, Now-Playing Store, audio ingest collaborators)
// never block and never learn their subscribers' identity or count.
type Hub struct {
	Registry   *Topic[domain.RegistryEvent]
	NowPlaying *Topic[domain.NowPlaying]
	Audio      *Topic[[]byte]
}

// NewHub constructs a Hub with the spec's fixed buffer sizes.
func NewHub() *Hub {
	return &Hub{
		Registry:   NewTopic[domain.RegistryEvent](RegistryEventsCapacity),
		NowPlaying: NewTopic[domain.NowPlaying](NowPlayingCapacity),
		Audio:      NewTopic[[]byte](AudioCapacity),
	}
}
