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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricMessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bgpbench",
		Name:      "messages_sent_total",
		Help:      "Messages written to peers, by message type.",
	}, []string{"type"})

	metricMessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bgpbench",
		Name:      "messages_received_total",
		Help:      "Messages decoded from peers, by message type.",
	}, []string{"type"})

	metricEstablished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bgpbench",
		Name:      "sessions_established_total",
		Help:      "Transitions into the Established state.",
	})

	metricConnectRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bgpbench",
		Name:      "connect_retries_total",
		Help:      "Failed TCP connection attempts.",
	})

	metricChildRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bgpbench",
		Name:      "session_restarts_total",
		Help:      "Session engines restarted by the supervisor after an abnormal exit.",
	})

	metricPrefixes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bgpbench",
		Name:      "prefixes_announced_total",
		Help:      "UPDATE announcements written to peers.",
	})

	metricEstablishedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bgpbench",
		Name:      "established_sessions",
		Help:      "Sessions currently in the Established state.",
	})
)

func typeName(t uint8) string {
	switch t {
	case M_OPEN:
		return "open"
	case M_UPDATE:
		return "update"
	case M_NOTIFICATION:
		return "notification"
	case M_KEEPALIVE:
		return "keepalive"
	}
	return "other"
}
