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

// capability is the inner TLV of an OPEN Capabilities Optional Parameter
// (parameter type 2, RFC 5492): code[1], length[1], value[length].
type capability struct {
	code  uint8
	value []byte
}

// AFI[2], Reserved[1](always 0), SAFI[1]
func multiprotocolCap(afi uint16, safi uint8) capability {
	a := htons(afi)
	return capability{code: CAP_MULTIPROTOCOL, value: []byte{a[0], a[1], 0, safi}}
}

func routeRefreshCap() capability {
	return capability{code: CAP_ROUTE_REFRESH, value: []byte{}}
}

func ciscoRouteRefreshCap() capability {
	return capability{code: CAP_ROUTE_REFRESH_CISCO, value: []byte{}}
}

func as4Cap(asn uint32) capability {
	a := htonl(asn)
	return capability{code: CAP_AS4, value: a[:]}
}

// AFI[2], SAFI[1], Send/Receive[1]
func addPathCap(afi uint16, safi, sendReceive uint8) capability {
	a := htons(afi)
	return capability{code: CAP_ADD_PATH, value: []byte{a[0], a[1], safi, sendReceive}}
}

// Restart Flags[4 bits], Restart Time[12 bits] - no per-AFI forwarding state
func gracefulRestartCap(restarting bool, timer uint16) capability {
	v := htons(timer & 0x0fff)
	if restarting {
		v[0] |= 0x80
	}
	return capability{code: CAP_GRACEFUL_RESTART, value: v[:]}
}

// Hostname Length[1], Hostname, Domain Name Length[1], Domain Name
func fqdnCap(hostname, domain string) capability {
	v := append([]byte{byte(len(hostname))}, hostname...)
	v = append(v, byte(len(domain)))
	return capability{code: CAP_FQDN, value: append(v, domain...)}
}

func (c capability) encode() []byte {
	return append([]byte{c.code, byte(len(c.value))}, c.value...)
}

// parameter wraps the capability TLV as an OPEN Optional Parameter:
// 0x02, length, code, length, value.
func (c capability) parameter() []byte {
	inner := c.encode()
	return append([]byte{CAPABILITIES_OPTIONAL_PARAMETER, byte(len(inner))}, inner...)
}

func decodeCapability(b []byte) (capability, bool) {
	o := octets{b}

	code, ok := o.u8()
	if !ok {
		return capability{}, false
	}

	value, ok := o.prefixed()
	if !ok {
		return capability{}, false
	}

	// trailing octets mean more than one TLV in the parameter - fall
	// back to raw rather than silently dropping the rest
	if o.remaining() != 0 {
		return capability{}, false
	}

	return capability{code: code, value: value}, true
}

// parameter is an OPEN Optional Parameter. A parameter of type 2 that parsed
// cleanly carries its capability; anything else keeps the raw value octets.
type parameter struct {
	ptype uint8
	cap   *capability
	raw   []byte
}

func (p parameter) encode() []byte {
	if p.cap != nil {
		return p.cap.parameter()
	}
	return append([]byte{p.ptype, byte(len(p.raw))}, p.raw...)
}

// capParam lifts a capability into a parameter for OPEN composition.
func capParam(c capability) parameter {
	return parameter{ptype: CAPABILITIES_OPTIONAL_PARAMETER, cap: &c, raw: c.encode()}
}

func decodeParameter(ptype uint8, value []byte) parameter {
	p := parameter{ptype: ptype, raw: value}

	if ptype != CAPABILITIES_OPTIONAL_PARAMETER {
		return p
	}

	// a capability that fails to parse is kept as a raw parameter
	if c, ok := decodeCapability(value); ok {
		p.cap = &c
	}

	return p
}
