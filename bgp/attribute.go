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

package bgp

// pathAttribute is an UPDATE path attribute: flags[1], type[1], length[1 or 2
// with F_EXTENDED], value. The F_EXTENDED flag is forced on when the value
// doesn't fit a single length octet.
type pathAttribute struct {
	flags uint8
	atype uint8
	value []byte
}

func (a pathAttribute) encode() []byte {
	flags := a.flags

	if len(a.value) > 255 {
		flags |= F_EXTENDED
	}

	if flags&F_EXTENDED != 0 {
		l := htons(uint16(len(a.value)))
		return append([]byte{flags, a.atype, l[0], l[1]}, a.value...)
	}

	return append([]byte{flags, a.atype, byte(len(a.value))}, a.value...)
}

// 0=IGP, 1=EGP, 2=Incomplete
func originAttr(code uint8) pathAttribute {
	return pathAttribute{flags: F_TRANSITIVE, atype: ORIGIN, value: []byte{code}}
}

// Each AS path segment is a triple <segment type, segment length, value>;
// ASNs are emitted as four octets (negotiated via the AS4 capability).
func asPathAttr(segment uint8, asns []uint32) pathAttribute {
	if len(asns) == 0 {
		// iBGP - empty AS_PATH, no segments
		return pathAttribute{flags: F_TRANSITIVE, atype: AS_PATH}
	}

	value := []byte{segment, byte(len(asns))}

	for _, asn := range asns {
		a := htonl(asn)
		value = append(value, a[:]...)
	}

	return pathAttribute{flags: F_TRANSITIVE, atype: AS_PATH, value: value}
}

func nextHopAttr(hop IP4) pathAttribute {
	return pathAttribute{flags: F_TRANSITIVE, atype: NEXT_HOP, value: hop[:]}
}
