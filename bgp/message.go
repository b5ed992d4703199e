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

import (
	"fmt"
)

type message interface {
	Type() uint8
	Body() []byte
}

type keepalive struct{}

func (k *keepalive) Type() uint8  { return M_KEEPALIVE }
func (k *keepalive) Body() []byte { return nil }

type notification struct {
	code uint8
	sub  uint8
	data []byte
	raw  []byte // original body octets when decoded off the wire
}

func (n *notification) Type() uint8 { return M_NOTIFICATION }

func (n *notification) Body() []byte {
	if n.raw != nil {
		return n.raw
	}
	return append([]byte{n.code, n.sub}, n.data...)
}

func (n *notification) String() string {
	return fmt.Sprintf("NOTIFICATION[%d:%d] %s", n.code, n.sub, note(n.code, n.sub))
}

// parse keeps the raw octets either way, so a short body still re-encodes
// byte-exact; code and subcode are only filled in when present.
func (n *notification) parse(d []byte) bool {
	n.raw = d
	if len(d) < 2 {
		return false
	}
	n.code = d[0]
	n.sub = d[1]
	n.data = d[2:]
	return true
}

// update carries the raw body only - inbound UPDATEs are never interpreted
type update struct {
	body []byte
}

func (u *update) Type() uint8  { return M_UPDATE }
func (u *update) Body() []byte { return u.body }

type open struct {
	version  uint8
	asNumber uint16
	holdTime uint16
	routerID IP4
	params   []parameter
}

func (o *open) Type() uint8 { return M_OPEN }

func (o *open) Body() []byte {
	as := htons(o.asNumber)
	ht := htons(o.holdTime)
	id := o.routerID

	body := []byte{o.version, as[0], as[1], ht[0], ht[1], id[0], id[1], id[2], id[3]}

	var params []byte
	for _, p := range o.params {
		params = append(params, p.encode()...)
	}

	body = append(body, byte(len(params)))

	return append(body, params...)
}

// decodeOpen parses an OPEN body. The returned parameter list is in reverse
// wire order - the decoder prepends while iterating. A parameter length
// overrunning the declared optional parameter block, or a block length that
// doesn't match the remaining body, yields NOTIFICATION[2:4].
func decodeOpen(body []byte) (*open, *notification) {
	bad := &notification{code: OPEN_ERROR, sub: UNSUPPORTED_OPTIONAL_PARAMETER}

	o := octets{body}

	version, ok := o.u8()
	if !ok {
		return nil, bad
	}

	asNumber, ok := o.u16()
	if !ok {
		return nil, bad
	}

	holdTime, ok := o.u16()
	if !ok {
		return nil, bad
	}

	id, ok := o.take(4)
	if !ok {
		return nil, bad
	}

	paramsLen, ok := o.u8()
	if !ok {
		return nil, bad
	}

	if int(paramsLen) != o.remaining() {
		return nil, bad
	}

	m := &open{version: version, asNumber: asNumber, holdTime: holdTime}
	copy(m.routerID[:], id)

	for o.remaining() > 0 {
		ptype, ok := o.u8()
		if !ok {
			return nil, bad
		}

		value, ok := o.prefixed()
		if !ok {
			return nil, bad
		}

		m.params = append([]parameter{decodeParameter(ptype, value)}, m.params...)
	}

	return m, nil
}

// updateBody composes a single-prefix announcement: no withdrawn routes,
// the supplied pre-encoded path attributes, then one NLRI entry with
// (prefixLen+7)/8 prefix octets.
func updateBody(attrs []byte, prefix IP4, prefixLen uint8) []byte {
	al := htons(uint16(len(attrs)))

	body := []byte{0, 0, al[0], al[1]}
	body = append(body, attrs...)
	body = append(body, prefixLen)

	return append(body, prefix[:(prefixLen+7)/8]...)
}

// headerise prepends the 19 octet header: marker[16] of 0xff, length[2]
// including the header, type[1].
func headerise(mtype uint8, body []byte) []byte {
	l := HEADER_LENGTH + len(body)
	p := make([]byte, l)

	for n := 0; n < 16; n++ {
		p[n] = 0xff
	}

	hl := htons(uint16(l))
	p[16] = hl[0]
	p[17] = hl[1]
	p[18] = mtype

	copy(p[HEADER_LENGTH:], body)

	return p
}

// notificationError aborts a decode batch and carries the NOTIFICATION that
// should be sent to the peer.
type notificationError struct {
	n notification
}

func (e *notificationError) Error() string {
	return e.n.String()
}

func headerError(sub uint8) *notificationError {
	return &notificationError{n: notification{code: MESSAGE_HEADER_ERROR, sub: sub}}
}

// decodeStream frames and decodes as many complete messages as the input
// holds, returning the decoded list and the residual tail to be carried into
// the next read. The list is in reverse wire order (prepend while iterating,
// like the parameter list) - callers wanting wire order walk it backwards.
//
// Input that doesn't start with a full all-ones marker plus length, or that
// holds a truncated message, is returned whole as the tail with no error. A
// declared length under 19 aborts with NOTIFICATION[1:2], an unknown type
// with NOTIFICATION[1:3], and a malformed OPEN body with the notification
// from decodeOpen.
func decodeStream(b []byte) ([]message, []byte, error) {
	var msgs []message

	for {
		if len(b) < HEADER_LENGTH {
			return msgs, b, nil
		}

		marker := true
		for _, x := range b[0:16] {
			if x != 0xff {
				marker = false
			}
		}

		if !marker {
			return msgs, b, nil
		}

		length := int(ntohs(b[16], b[17]))
		mtype := b[18]

		if length < HEADER_LENGTH {
			return nil, nil, headerError(BAD_MESSAGE_LENGTH)
		}

		if len(b) < length {
			return msgs, b, nil
		}

		body := b[HEADER_LENGTH:length]

		var m message

		switch mtype {
		case M_OPEN:
			o, bad := decodeOpen(body)
			if bad != nil {
				return nil, nil, &notificationError{n: *bad}
			}
			m = o

		case M_UPDATE:
			m = &update{body: body}

		case M_NOTIFICATION:
			var n notification
			n.parse(body)
			m = &n

		case M_KEEPALIVE:
			m = &keepalive{}

		default:
			return nil, nil, headerError(BAD_MESSAGE_TYPE)
		}

		msgs = append([]message{m}, msgs...)
		b = b[length:]
	}
}
