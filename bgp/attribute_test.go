package bgp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOriginAttr(t *testing.T) {
	require.Equal(t, []byte{0x40, 1, 1, 0}, originAttr(IGP).encode())
	require.Equal(t, []byte{0x40, 1, 1, 2}, originAttr(INCOMPLETE).encode())
}

func TestASPathAttr(t *testing.T) {
	// iBGP - empty AS_PATH
	require.Equal(t, []byte{0x40, 2, 0}, asPathAttr(AS_SEQUENCE, nil).encode())

	// eBGP - single four-octet ASN
	require.Equal(t,
		[]byte{0x40, 2, 6, 2, 1, 0, 0, 0xfd, 0xe8},
		asPathAttr(AS_SEQUENCE, []uint32{65000}).encode())

	// AS_SET segment with two ASNs, one beyond the 16-bit range
	require.Equal(t,
		[]byte{0x40, 2, 10, 1, 2, 0, 0, 0x30, 0x39, 0xfa, 0x56, 0xea, 0x00},
		asPathAttr(AS_SET, []uint32{12345, 4200000000}).encode())
}

func TestNextHopAttr(t *testing.T) {
	require.Equal(t, []byte{0x40, 3, 4, 10, 0, 0, 1}, nextHopAttr(IP4{10, 0, 0, 1}).encode())
}

func TestAttributeExtendedLength(t *testing.T) {
	value := bytes.Repeat([]byte{0xab}, 300)

	a := pathAttribute{flags: F_OPTIONAL | F_TRANSITIVE, atype: 99, value: value}
	enc := a.encode()

	// extended length forced on: flags, type, u16 length, value
	require.Equal(t, uint8(F_OPTIONAL|F_TRANSITIVE|F_EXTENDED), enc[0])
	require.Equal(t, uint8(99), enc[1])
	require.Equal(t, uint16(300), ntohs(enc[2], enc[3]))
	require.Equal(t, value, enc[4:])

	// an explicit extended flag keeps the u16 length even for short values
	b := pathAttribute{flags: F_TRANSITIVE | F_EXTENDED, atype: 2, value: []byte{1}}
	require.Equal(t, []byte{0x50, 2, 0, 1, 1}, b.encode())
}
