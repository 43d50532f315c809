// Package config loads and validates node configuration from a JSON file,
// with an optional fsnotify watcher that re-loads the config file itself on
// change (WatchReload). The blocklist_cache_file option is parsed but no
// code reads or writes that file. The validation style
// (explicit field checks returning wrapped errors) follows
// alxayo-rtmp-go/cmd/rtmp-server/flags.go's parseFlags.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// StationConfig describes the one station this node advertises, if any.
type StationConfig struct {
	Name      string `json:"name"`
	Frequency string `json:"frequency"`
	StationID string `json:"station_id"`
}

// Config is the full set of recognized node options (spec §6.5).
type Config struct {
	NodeID    string   `json:"node_id"`
	Bind      string   `json:"bind"`
	PublicURL string   `json:"public_url"`
	PeerURLs  []string `json:"peer_urls"`

	SourceToken string          `json:"source_token"`
	Station     *StationConfig  `json:"station"`

	AdvertiseTTLSeconds    uint32 `json:"advertise_ttl_secs"`
	OwnerSecretKeyB64      string `json:"owner_secret_key"`
	MaxFrequenciesPerOwner int    `json:"max_frequencies_per_owner"`

	NowPlayingSocketPath string `json:"now_playing_socket_path"`
	AudioSocketPath      string `json:"audio_socket_path"`

	BlocklistURL          string `json:"blocklist_url"`
	BlocklistRefreshSecs  int    `json:"blocklist_refresh_secs"`
	BlocklistCacheFile    string `json:"blocklist_cache_file"`

	P2PListenAddrs     []string `json:"p2p_listen_addrs"`
	P2PBootstrapAddrs  []string `json:"p2p_bootstrap_addrs"`
	P2PEnableMDNS      bool     `json:"p2p_enable_mdns"`
	P2PKeyPath         string   `json:"p2p_key_path"`
}

const (
	defaultAdvertiseTTLSeconds    = 30
	minAdvertiseTTLSeconds        = 10
	defaultMaxFrequenciesPerOwner = 3
	minBlocklistRefreshSecs       = 30
)

// Load reads and validates the JSON config file at path, filling in
// defaults for any option spec §6.5 marks as optional.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.New().String()
	}
	if cfg.AdvertiseTTLSeconds == 0 {
		cfg.AdvertiseTTLSeconds = defaultAdvertiseTTLSeconds
	}
	if cfg.MaxFrequenciesPerOwner == 0 {
		cfg.MaxFrequenciesPerOwner = defaultMaxFrequenciesPerOwner
	}
}

func validate(cfg *Config) error {
	if _, err := uuid.Parse(cfg.NodeID); err != nil {
		return fmt.Errorf("config: invalid node_id %q: %w", cfg.NodeID, err)
	}
	if cfg.Bind == "" {
		return fmt.Errorf("config: bind address is required")
	}
	if cfg.AdvertiseTTLSeconds < minAdvertiseTTLSeconds {
		return fmt.Errorf("config: advertise_ttl_secs must be >= %d, got %d", minAdvertiseTTLSeconds, cfg.AdvertiseTTLSeconds)
	}
	if cfg.MaxFrequenciesPerOwner < 1 {
		return fmt.Errorf("config: max_frequencies_per_owner must be >= 1, got %d", cfg.MaxFrequenciesPerOwner)
	}
	if cfg.BlocklistURL != "" && cfg.BlocklistRefreshSecs != 0 && cfg.BlocklistRefreshSecs < minBlocklistRefreshSecs {
		return fmt.Errorf("config: blocklist_refresh_secs must be >= %d, got %d", minBlocklistRefreshSecs, cfg.BlocklistRefreshSecs)
	}
	if cfg.Station != nil {
		if cfg.Station.Frequency == "" {
			return fmt.Errorf("config: station.frequency is required when station is configured")
		}
		if cfg.Station.StationID == "" {
			return fmt.Errorf("config: station.station_id is required when station is configured")
		}
		if _, err := uuid.Parse(cfg.Station.StationID); err != nil {
			return fmt.Errorf("config: invalid station.station_id %q: %w", cfg.Station.StationID, err)
		}
	}
	return nil
}
