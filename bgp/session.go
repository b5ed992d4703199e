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
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	CONNECTING  = "CONNECTING"
	OPEN_SENT   = "OPEN_SENT"
	ESTABLISHED = "ESTABLISHED"

	DEFAULT_HOLD_TIME = 180
)

// Peer is the immutable per-session neighbor configuration. The session
// engine receives it by value and never mutates it.
type Peer struct {
	Neighbor     IP4
	NeighborPort uint16
	RemoteAS     uint32
	LocalAddress IP4
	LocalAS      uint32
	RouterID     IP4
	PrefixStart  IP4
	PrefixAmount uint32
	HoldTime     uint16
}

func (p Peer) addr() string {
	port := p.NeighborPort
	if port == 0 {
		port = DEFAULT_PORT
	}
	return fmt.Sprintf("%s:%d", p.Neighbor, port)
}

// the OPEN "My Autonomous System" field is two octets; the real ASN always
// travels in the AS4 capability
func as16(asn uint32) uint16 {
	if asn > 0xffff {
		return AS_TRANS
	}
	return uint16(asn)
}

type Status struct {
	State       string    `json:"state"`
	When        time.Time `json:"when"`
	Advertised  uint64    `json:"advertised_routes"`
	Attempts    uint64    `json:"connection_attempts"`
	Established uint64    `json:"established_sessions"`
	LastError   string    `json:"last_error"`
	HoldTime    uint16    `json:"hold_time"`
	LocalASN    uint32    `json:"local_asn"`
	RemoteASN   uint16    `json:"remote_asn"`
	LocalIP     string    `json:"local_ip"`
}

// Session drives one neighbor: connect, handshake, keepalives, and the
// UPDATE pacing loop. All session state lives on the stack of try() and is
// recreated from the Peer config on every reconnect; only Status survives
// for reporting.
type Session struct {
	peer   Peer
	log    zerolog.Logger
	done   chan bool
	once   sync.Once
	status Status
	mutex  sync.Mutex
}

func NewSession(p Peer, log zerolog.Logger) *Session {
	return &Session{
		peer: p,
		log:  log.With().Str("peer", p.addr()).Str("local", p.LocalAddress.String()).Logger(),
		done: make(chan bool),
	}
}

func (s *Session) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *Session) Status() Status {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.status
}

func (s *Session) state(state string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.status.State = state
	s.status.When = time.Now().Round(time.Second)
}

func (s *Session) error(e string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.status.LastError = e
}

func (s *Session) active() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.status.State = CONNECTING
	s.status.When = time.Now().Round(time.Second)
	s.status.Attempts++
	s.status.Advertised = 0
	s.status.HoldTime = 0
	s.status.RemoteASN = 0
	s.status.LocalASN = s.peer.LocalAS
	s.status.LocalIP = ""
}

func (s *Session) localip(local string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.status.LocalIP = local
}

func (s *Session) established(ht uint16, remote uint16) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.status.State = ESTABLISHED
	s.status.When = time.Now().Round(time.Second)
	s.status.Established++
	s.status.LastError = ""
	s.status.HoldTime = ht
	s.status.RemoteASN = remote
}

func (s *Session) advertised(n uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.status.Advertised = n
}

// run loops connection attempts until Stop(). A failed attempt is retried
// immediately - churn is the point of the tool, and the dial timeout is the
// only brake. Returns nil only on clean shutdown.
func (s *Session) run() error {
	for {
		select {
		case <-s.done:
			return nil
		default:
		}

		s.try()
	}
}

// pathAttributes composes the constant attribute block shared by every
// UPDATE on this connection: ORIGIN IGP, AS_PATH (one AS_SEQUENCE entry for
// eBGP, empty for iBGP), NEXT_HOP of the local socket address.
func (s *Session) pathAttributes(local IP4) []byte {
	var asns []uint32

	if s.peer.LocalAS != s.peer.RemoteAS {
		asns = []uint32{s.peer.LocalAS}
	}

	attrs := originAttr(IGP).encode()
	attrs = append(attrs, asPathAttr(AS_SEQUENCE, asns).encode()...)
	return append(attrs, nextHopAttr(local).encode()...)
}

func (s *Session) send(conn *connection, m message) error {
	err := conn.send(m)
	if err == nil {
		metricMessagesSent.WithLabelValues(typeName(m.Type())).Inc()
	}
	return err
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// try runs one connection lifetime: dial, OPEN handshake, then the event
// loop. Any exit path closes the socket and hands control back to run()
// with only the Peer config surviving.
func (s *Session) try() {
	p := s.peer

	s.active()

	conn, err := newConnection(p.LocalAddress, p.addr())
	if err != nil {
		metricConnectRetries.Inc()
		s.error(err.Error())
		return
	}

	defer conn.close()

	local, ok := conn.local()
	if !ok {
		local = p.LocalAddress
	}

	s.localip(local.String())

	holdTime := p.HoldTime
	if holdTime == 0 {
		holdTime = DEFAULT_HOLD_TIME
	}

	o := open{
		version:  BGP_VERSION,
		asNumber: as16(p.LocalAS),
		holdTime: holdTime,
		routerID: p.RouterID,
		params: []parameter{
			capParam(multiprotocolCap(AFI_IPV4, SAFI_UNICAST)),
			capParam(as4Cap(p.LocalAS)),
		},
	}

	if err := s.send(conn, &o); err != nil {
		s.error(err.Error())
		return
	}

	s.state(OPEN_SENT)
	s.log.Info().Msg("OPEN sent")

	holdInterval := time.Duration(holdTime) * time.Second
	holdTimer := time.NewTimer(holdInterval)
	defer holdTimer.Stop()

	keepaliveTimer := time.NewTicker(keepaliveInterval(holdInterval))
	defer keepaliveTimer.Stop()

	fsm := OPEN_SENT

	defer func() {
		if fsm == ESTABLISHED {
			metricEstablishedSessions.Dec()
		}
	}()

	var tail []byte
	var attrs []byte
	var cursor uint32

	// self-posted send_route event; capacity one so posting is idempotent
	sendRoute := make(chan bool, 1)
	post := func() {
		select {
		case sendRoute <- true:
		default:
		}
	}

	for {
		select {
		case <-s.done:
			s.send(conn, &notification{code: CEASE, sub: ADMINISTRATIVE_SHUTDOWN})
			s.log.Info().Msg("administrative shutdown")
			return

		case chunk, ok := <-conn.C:
			if !ok {
				s.error(conn.Error)
				s.log.Warn().Str("error", conn.Error).Msg("connection lost")
				return
			}

			holdTimer.Reset(holdInterval)

			msgs, rest, err := decodeStream(append(tail, chunk...))
			if err != nil {
				var ne *notificationError
				if errors.As(err, &ne) {
					s.log.Warn().Str("sent", ne.n.String()).Msg("framing error")
					s.send(conn, &ne.n)
				}
				tail = nil // the buffer can't be reframed, drop it
				continue
			}

			tail = rest

			if len(tail) >= MAX_MESSAGE {
				s.log.Warn().Int("tail", len(tail)).Msg("unframeable input, dropping buffer")
				tail = nil
			}

			// the decoder returns reverse wire order - walk backwards so the
			// FSM sees messages as they arrived
			for i := len(msgs) - 1; i >= 0; i-- {
				m := msgs[i]
				metricMessagesReceived.WithLabelValues(typeName(m.Type())).Inc()

				switch v := m.(type) {
				case *open:
					if fsm != OPEN_SENT {
						continue
					}

					// adopt the peer's hold time wholesale
					holdTime = v.holdTime
					holdInterval = time.Duration(holdTime) * time.Second
					if holdInterval < 3*time.Second {
						holdInterval = 3 * time.Second
					}
					holdTimer.Reset(holdInterval)
					keepaliveTimer.Reset(keepaliveInterval(holdInterval))

					fsm = ESTABLISHED
					s.established(holdTime, v.asNumber)
					metricEstablished.Inc()
					metricEstablishedSessions.Inc()

					s.log.Info().
						Uint16("remote_as", v.asNumber).
						Uint16("hold_time", v.holdTime).
						Str("router_id", v.routerID.String()).
						Msg("session established")

					attrs = s.pathAttributes(local)

					// the KEEPALIVE must hit the wire before the first UPDATE
					if err := s.send(conn, &keepalive{}); err != nil {
						s.error(err.Error())
						return
					}

					if p.PrefixAmount > 0 {
						post()
					}

				case *notification:
					s.log.Info().Str("received", v.String()).Msg("notification from peer")

				default:
					// no inbound processing - the hold timer reset above is
					// all the liveness bookkeeping we do
				}
			}

		case <-keepaliveTimer.C:
			if fsm != ESTABLISHED {
				continue
			}

			if err := s.send(conn, &keepalive{}); err != nil && !isTimeout(err) {
				s.error(err.Error())
				return
			}

		case <-holdTimer.C:
			s.send(conn, &notification{code: HOLD_TIMER_EXPIRED})
			s.error("hold timer expired")
			s.log.Warn().Msg("hold timer expired")
			return

		case <-sendRoute:
			if fsm != ESTABLISHED {
				continue
			}

			// tight send loop: stream the whole remaining range, yielding
			// only when the socket buffer pushes back
			for cursor < p.PrefixAmount {
				prefix := IP4(htonl(p.PrefixStart.uint32() + cursor))
				u := update{body: updateBody(attrs, prefix, 32)}

				if err := s.send(conn, &u); err != nil {
					if isTimeout(err) {
						post()
						break
					}
					s.error(err.Error())
					return
				}

				cursor++
				metricPrefixes.Inc()
				s.advertised(uint64(cursor))
			}

			if cursor == p.PrefixAmount {
				s.log.Info().Uint32("prefixes", cursor).Msg("announcement run complete")
			}
		}
	}
}

func keepaliveInterval(hold time.Duration) time.Duration {
	i := hold / 3
	if i < time.Second {
		i = time.Second
	}
	return i
}
