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
	"sync"

	"github.com/rs/zerolog"
)

// Pool supervises one Session per configured neighbor, keyed by local bind
// address. Restart policy is one-for-one and transient: a child that exits
// abnormally (panic in the engine) is restarted alone; a child that returns
// from a clean Stop() is not.
type Pool struct {
	sessions map[string]*Session
	log      zerolog.Logger
	wg       sync.WaitGroup
	once     sync.Once
}

func NewPool(peers []Peer, log zerolog.Logger) *Pool {
	pool := &Pool{
		sessions: map[string]*Session{},
		log:      log,
	}

	for _, p := range peers {
		key := p.LocalAddress.String()

		if _, exists := pool.sessions[key]; exists {
			key = fmt.Sprintf("%s>%s", key, p.addr())
		}

		s := NewSession(p, log)
		pool.sessions[key] = s

		pool.wg.Add(1)
		go pool.supervise(key, s.run)
	}

	return pool
}

func (p *Pool) supervise(key string, run func() error) {
	defer p.wg.Done()

	for {
		err := runChild(run)

		if err == nil {
			return
		}

		metricChildRestarts.Inc()
		p.log.Error().Str("child", key).Err(err).Msg("session engine died, restarting")
	}
}

// runChild converts a panic in the session engine into an error so the
// supervisor can restart it without taking the process down.
func runChild(run func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session panic: %v", r)
		}
	}()

	return run()
}

func (p *Pool) Status() map[string]Status {
	status := map[string]Status{}
	for key, s := range p.sessions {
		status[key] = s.Status()
	}
	return status
}

// Close stops every child and waits for them to exit.
func (p *Pool) Close() {
	p.once.Do(func() {
		for _, s := range p.sessions {
			s.Stop()
		}
		p.wg.Wait()
	})
}
