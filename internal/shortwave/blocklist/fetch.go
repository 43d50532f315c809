package blocklist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

// Fetch retrieves a plain-text list (one IP per line, '#' starts a comment,
// blank lines ignored) from url and parses it into a slice of addresses.
// CIDR ranges are out of scope here: the registry's membership test is
// exact-IP only (spec §4.9 "contains(ip)"), so a CIDR line is skipped with
// a warning rather than silently misinterpreted as a single address.
func Fetch(ctx context.Context, url string, client *http.Client, log *slog.Logger) ([]netip.Addr, error) {
	if log == nil {
		log = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blocklist: unexpected status %d fetching %s", resp.StatusCode, url)
	}
	return parse(resp.Body, log), nil
}

func parse(r io.Reader, log *slog.Logger) []netip.Addr {
	var out []netip.Addr
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "/") {
			log.Warn("skipping CIDR blocklist entry, exact-IP only", "entry", line)
			continue
		}
		addr, err := netip.ParseAddr(line)
		if err != nil {
			log.Warn("skipping unparseable blocklist entry", "entry", line, "error", err)
			continue
		}
		out = append(out, addr)
	}
	return out
}

// Refresh fetches the blocklist from url every interval and applies it to
// store until ctx is cancelled. Fetch failures are logged and the previous
// set is kept.
func Refresh(ctx context.Context, url string, interval time.Duration, store *Store, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	apply := func() {
		ips, err := Fetch(ctx, url, nil, log)
		if err != nil {
			log.Warn("blocklist fetch failed", "url", url, "error", err)
			return
		}
		store.Set(ips)
	}

	apply()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			apply()
		}
	}
}
