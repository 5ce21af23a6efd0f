// Package transport publishes controller snapshots over UDP as JSON
// datagrams, one message per control tick. Sends are asynchronous: Publish
// enqueues and returns, a background goroutine drains the queue, and send
// failures surface on a later Publish call rather than stalling the control
// loop.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bipedlab/locomotion/internal/monitoring"
)

// Stats receives transport event counts. Implementations must be safe for
// concurrent use.
type Stats interface {
	AddPublished()
	AddDropped()
	AddSendError()
}

type noopStats struct{}

func (noopStats) AddPublished() {}
func (noopStats) AddDropped()   {}
func (noopStats) AddSendError() {}

// Envelope is the wire framing of one published message.
type Envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

const queueDepth = 256

// UDPPublisher sends JSON envelopes to a fixed UDP address.
type UDPPublisher struct {
	conn        *net.UDPConn
	queue       chan []byte
	stats       Stats
	logInterval time.Duration
	address     string
	logf        func(format string, v ...interface{})

	mu      sync.Mutex
	lastErr error
}

// NewUDPPublisher dials the destination address ("host:port"). Pass a nil
// stats to discard counters.
func NewUDPPublisher(address string, stats Stats, logInterval time.Duration) (*UDPPublisher, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", address, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", address, err)
	}
	if stats == nil {
		stats = noopStats{}
	}
	if logInterval <= 0 {
		logInterval = 5 * time.Second
	}
	return &UDPPublisher{
		conn:        conn,
		queue:       make(chan []byte, queueDepth),
		stats:       stats,
		logInterval: logInterval,
		address:     address,
		logf:        monitoring.Prefixed("[transport]"),
	}, nil
}

// Start begins the send goroutine. Send errors are counted, kept for the
// next Publish call to report, and summarized at the log interval.
func (p *UDPPublisher) Start(ctx context.Context) {
	go func() {
		errCount := 0
		var lastLogged error
		ticker := time.NewTicker(p.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-p.queue:
				if _, err := p.conn.Write(msg); err != nil {
					errCount++
					lastLogged = err
					p.stats.AddSendError()
					p.mu.Lock()
					p.lastErr = err
					p.mu.Unlock()
					continue
				}
				p.stats.AddPublished()
			case <-ticker.C:
				if errCount > 0 {
					p.logf("%d send errors to %s (latest: %v)", errCount, p.address, lastLogged)
					errCount = 0
					lastLogged = nil
				}
			}
		}
	}()

	p.logf("publishing to %s", p.address)
}

// Publish encodes the payload and enqueues it without blocking. A full queue
// drops the message. Any send error recorded since the previous call is
// returned once and cleared.
func (p *UDPPublisher) Publish(channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("transport: encode %s payload: %w", channel, err)
	}
	msg, err := json.Marshal(Envelope{Channel: channel, Data: data})
	if err != nil {
		return fmt.Errorf("transport: encode %s envelope: %w", channel, err)
	}

	select {
	case p.queue <- msg:
	default:
		p.stats.AddDropped()
		return fmt.Errorf("transport: queue full, dropped message on %s", channel)
	}

	p.mu.Lock()
	last := p.lastErr
	p.lastErr = nil
	p.mu.Unlock()
	if last != nil {
		return fmt.Errorf("transport: deferred send error on %s: %w", p.address, last)
	}
	return nil
}

// Close tears down the connection. Queued messages not yet sent are lost.
func (p *UDPPublisher) Close() error {
	return p.conn.Close()
}
