package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rzalamena/bgp-bench/bgp"
)

func TestLoad(t *testing.T) {
	c, err := Load("testdata/bgpbench.yaml")
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9179", c.MetricsListen)
	require.Len(t, c.Peers, 2)

	peers := c.BGPPeers()
	require.Len(t, peers, 2)

	require.Equal(t, bgp.Peer{
		Neighbor:     bgp.IP4{192, 0, 2, 1},
		NeighborPort: 1790,
		RemoteAS:     65001,
		LocalAddress: bgp.IP4{192, 0, 2, 10},
		LocalAS:      64512,
		RouterID:     bgp.IP4{10, 255, 0, 1},
		PrefixStart:  bgp.IP4{10, 0, 0, 0},
		PrefixAmount: 100000,
		HoldTime:     90,
	}, peers[0])

	// second peer leaves local_address, port and hold_time to defaults
	require.Equal(t, bgp.IP4{}, peers[1].LocalAddress)
	require.Equal(t, uint16(0), peers[1].NeighborPort)
	require.Equal(t, uint16(0), peers[1].HoldTime)
	require.Equal(t, uint32(500), peers[1].PrefixAmount)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BGPBENCH_METRICS_LISTEN", ":8080")

	c, err := Load("testdata/bgpbench.yaml")
	require.NoError(t, err)
	require.Equal(t, ":8080", c.MetricsListen)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	require.Error(t, err)
}

func TestLoadNoPeers(t *testing.T) {
	path := writeConfig(t, "metrics_listen: \":9179\"\n")

	_, err := Load(path)
	require.ErrorContains(t, err, "no peers")
}

func TestLoadInvalidAddress(t *testing.T) {
	path := writeConfig(t, `
peers:
  - neighbor: not-an-address
    remote_as: 65001
    local_as: 64512
    router_id: 10.255.0.1
    prefix_start: 10.0.0.0
    prefix_amount: 10
`)

	_, err := Load(path)
	require.ErrorContains(t, err, "neighbor")
}

func TestLoadRejectsIPv6Neighbor(t *testing.T) {
	path := writeConfig(t, `
peers:
  - neighbor: 2001:db8::1
    remote_as: 65001
    local_as: 64512
    router_id: 10.255.0.1
    prefix_start: 10.0.0.0
    prefix_amount: 10
`)

	_, err := Load(path)
	require.ErrorContains(t, err, "not an IPv4 address")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bgpbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}
