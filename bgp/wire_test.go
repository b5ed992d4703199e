package bgp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOctetsReads(t *testing.T) {
	o := octets{[]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}}

	v8, ok := o.u8()
	require.True(t, ok)
	require.Equal(t, uint8(0x01), v8)

	v16, ok := o.u16()
	require.True(t, ok)
	require.Equal(t, uint16(0x0203), v16)

	v32, ok := o.u32()
	require.True(t, ok)
	require.Equal(t, uint32(0x04050607), v32)

	require.Equal(t, 1, o.remaining())

	_, ok = o.u16()
	require.False(t, ok)

	// the failed read consumes nothing
	v8, ok = o.u8()
	require.True(t, ok)
	require.Equal(t, uint8(0x08), v8)
}

func TestOctetsTake(t *testing.T) {
	o := octets{[]byte{1, 2, 3}}

	b, ok := o.take(2)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2}, b)

	_, ok = o.take(2)
	require.False(t, ok)

	b, ok = o.take(0)
	require.True(t, ok)
	require.Empty(t, b)
}

func TestOctetsPrefixed(t *testing.T) {
	o := octets{[]byte{3, 'a', 'b', 'c', 0}}

	b, ok := o.prefixed()
	require.True(t, ok)
	require.Equal(t, []byte("abc"), b)

	b, ok = o.prefixed()
	require.True(t, ok)
	require.Empty(t, b)

	_, ok = o.prefixed()
	require.False(t, ok)
}

func TestByteOrderHelpers(t *testing.T) {
	require.Equal(t, [2]byte{0x12, 0x34}, htons(0x1234))
	require.Equal(t, [4]byte{0x12, 0x34, 0x56, 0x78}, htonl(0x12345678))
	require.Equal(t, uint16(0x1234), ntohs(0x12, 0x34))
	require.Equal(t, uint32(0x12345678), ntohl(0x12, 0x34, 0x56, 0x78))

	ip := IP4{10, 1, 2, 3}
	require.Equal(t, "10.1.2.3", ip.String())
	require.Equal(t, uint32(0x0a010203), ip.uint32())
	require.Equal(t, ip, IP4(htonl(ip.uint32())))
}
