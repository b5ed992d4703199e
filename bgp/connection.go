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
	"net"
	"sync"
	"time"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 3 * time.Second
	readBuffer   = 65536
)

// connection owns one TCP stream to a peer. The reader goroutine delivers
// raw chunks on C - framing is the session's job, via the streaming decoder,
// so a message split across reads survives in the session's tail. Sends are
// synchronous; the socket buffer is the only backpressure signal.
type connection struct {
	C     chan []byte
	Error string

	closed chan bool
	once   sync.Once
	mutex  sync.Mutex
	conn   net.Conn
}

func newConnection(local IP4, peer string) (*connection, error) {
	var nul IP4

	dialer := net.Dialer{
		Timeout: dialTimeout,
	}

	if local != nul {
		dialer = net.Dialer{
			Timeout: dialTimeout,
			LocalAddr: &net.TCPAddr{
				IP:   net.IP(local[:]),
				Port: 0,
			},
		}
	}

	conn, err := dialer.Dial("tcp", peer)

	if err != nil {
		return nil, err
	}

	c := &connection{
		C:      make(chan []byte),
		closed: make(chan bool),
		conn:   conn,
	}

	go c.reader()

	return c, nil
}

func (c *connection) local() (IP4, bool) {
	var ip IP4

	a, ok := c.conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		return ip, false
	}

	v4 := a.IP.To4()
	if v4 == nil {
		return ip, false
	}

	copy(ip[:], v4)
	return ip, true
}

// send encodes and writes one message. A timeout leaves the connection
// usable (the caller yields and retries); any other error is terminal.
func (c *connection) send(m message) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	_, err := c.conn.Write(headerise(m.Type(), m.Body()))

	return err
}

func (c *connection) close() {
	c.once.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

func (c *connection) reader() {
	defer close(c.C)

	for {
		buf := make([]byte, readBuffer)

		n, err := c.conn.Read(buf)

		if n > 0 {
			select {
			case c.C <- buf[:n]:
			case <-c.closed:
				return
			}
		}

		if err != nil {
			c.Error = err.Error()
			return
		}
	}
}
