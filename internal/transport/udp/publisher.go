// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "conch/internal/log"
)

// FrameProvider is the pull side of the spectrogram engine.
type FrameProvider interface {
	FrameInto(dst []float64) (uint64, error)
	Rows() int
}

// Publisher periodically pulls the latest spectrogram rows, packs
// them into a binary packet and sends them over UDP. It runs on its
// own goroutine between Start and Stop.
//
// Packet layout (BigEndian):
//
//	uint32  sequence number
//	int64   timestamp, nanoseconds since epoch
//	uint16  row count N
//	N x float32 rows
type Publisher struct {
	sender   *Sender
	frames   FrameProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32

	// Pre-allocated buffers for the per-tick path.
	rowBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher sending every interval. An invalid
// interval falls back to ~30Hz.
func NewPublisher(interval time.Duration, sender *Sender, frames FrameProvider) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	if frames == nil {
		return nil, fmt.Errorf("udp publisher: frame provider cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("udp publisher: invalid interval, defaulting to %s", interval)
	}

	rows := frames.Rows()
	return &Publisher{
		sender:       sender,
		frames:       frames,
		interval:     interval,
		rowBuffer:    make([]float64, rows),
		f32Buffer:    make([]float32, rows),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publish loop. No-op if already running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("udp publisher: Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
	applog.Infof("udp publisher: started (interval %s, %d rows)", p.interval, len(p.rowBuffer))
}

// Stop terminates the publish loop and waits for it. Idempotent.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Publisher) buildAndSendPacket() {
	if _, err := p.frames.FrameInto(p.rowBuffer); err != nil {
		applog.Errorf("udp publisher: frame fetch failed: %v", err)
		return
	}
	for i, v := range p.rowBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	timestamp := time.Now().UnixNano()
	rowCount := uint16(len(p.f32Buffer))

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, rowCount)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}
	if err != nil {
		applog.Errorf("udp publisher: packet encode failed: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		applog.Debugf("udp publisher: send failed: %v", err)
	}
}

// Close stops the publish loop.
func (p *Publisher) Close() error {
	return p.Stop()
}
