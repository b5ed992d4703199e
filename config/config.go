/*
 * bgp-bench BGP-4 load generator. Copyright (C) 2024-present Rafael Zalamena
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

// Package config loads the benchmark configuration from a YAML file with
// BGPBENCH_ environment variable overrides.
package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/rzalamena/bgp-bench/bgp"
)

const envPrefix = "BGPBENCH_"

type Config struct {
	MetricsListen string       `koanf:"metrics_listen"`
	Peers         []PeerConfig `koanf:"peers"`
}

type PeerConfig struct {
	Neighbor     string `koanf:"neighbor"`
	NeighborPort uint16 `koanf:"neighbor_port"`
	RemoteAS     uint32 `koanf:"remote_as"`
	LocalAddress string `koanf:"local_address"`
	LocalAS      uint32 `koanf:"local_as"`
	RouterID     string `koanf:"router_id"`
	PrefixStart  string `koanf:"prefix_start"`
	PrefixAmount uint32 `koanf:"prefix_amount"`
	HoldTime     uint16 `koanf:"hold_time"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	// BGPBENCH_METRICS_LISTEN=:9179 overrides metrics_listen, etc.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("unmarshalling configuration: %w", err)
	}

	if len(c.Peers) == 0 {
		return nil, fmt.Errorf("%s: no peers configured", path)
	}

	for i := range c.Peers {
		if _, err := c.Peers[i].Peer(); err != nil {
			return nil, fmt.Errorf("peer %d: %w", i, err)
		}
	}

	return &c, nil
}

// BGPPeers converts the validated peer entries into session configurations.
func (c *Config) BGPPeers() []bgp.Peer {
	peers := make([]bgp.Peer, 0, len(c.Peers))

	for _, pc := range c.Peers {
		p, _ := pc.Peer()
		peers = append(peers, p)
	}

	return peers
}

func (pc PeerConfig) Peer() (bgp.Peer, error) {
	var p bgp.Peer
	var err error

	if p.Neighbor, err = addr4(pc.Neighbor); err != nil {
		return p, fmt.Errorf("neighbor: %w", err)
	}

	// empty local_address leaves the bind to the network stack
	if pc.LocalAddress != "" {
		if p.LocalAddress, err = addr4(pc.LocalAddress); err != nil {
			return p, fmt.Errorf("local_address: %w", err)
		}
	}

	if p.RouterID, err = addr4(pc.RouterID); err != nil {
		return p, fmt.Errorf("router_id: %w", err)
	}

	if p.PrefixStart, err = addr4(pc.PrefixStart); err != nil {
		return p, fmt.Errorf("prefix_start: %w", err)
	}

	p.NeighborPort = pc.NeighborPort
	p.RemoteAS = pc.RemoteAS
	p.LocalAS = pc.LocalAS
	p.PrefixAmount = pc.PrefixAmount
	p.HoldTime = pc.HoldTime

	return p, nil
}

func addr4(s string) (bgp.IP4, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return bgp.IP4{}, err
	}
	if !a.Is4() {
		return bgp.IP4{}, fmt.Errorf("%s is not an IPv4 address", s)
	}
	return a.As4(), nil
}
