// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"math"
	"net"
	"testing"
	"time"
)

// staticFrames serves a fixed row vector.
type staticFrames struct {
	rows []float64
	gen  uint64
}

func (s *staticFrames) FrameInto(dst []float64) (uint64, error) {
	copy(dst, s.rows)
	s.gen++
	return s.gen, nil
}

func (s *staticFrames) Rows() int { return len(s.rows) }

func TestPublisher_PacketFormat(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	frames := &staticFrames{rows: []float64{0.25, 0.5, 0.75}}
	p, err := NewPublisher(10*time.Millisecond, sender, frames)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	p.Start()
	defer p.Stop()

	listener.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1500)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("no packet received: %v", err)
	}

	// uint32 seq + int64 timestamp + uint16 count + 3*float32
	wantLen := 4 + 8 + 2 + 3*4
	if n != wantLen {
		t.Fatalf("packet length = %d, want %d", n, wantLen)
	}

	seq := binary.BigEndian.Uint32(buf[0:4])
	if seq == 0 {
		t.Error("sequence number must start at 1")
	}
	ts := int64(binary.BigEndian.Uint64(buf[4:12]))
	if d := time.Since(time.Unix(0, ts)); d < 0 || d > time.Minute {
		t.Errorf("timestamp implausible: %v ago", d)
	}
	if count := binary.BigEndian.Uint16(buf[12:14]); count != 3 {
		t.Fatalf("row count = %d, want 3", count)
	}
	want := []float32{0.25, 0.5, 0.75}
	for i, w := range want {
		got := math.Float32frombits(binary.BigEndian.Uint32(buf[14+i*4 : 18+i*4]))
		if got != w {
			t.Errorf("row %d = %g, want %g", i, got, w)
		}
	}
}

func TestPublisher_StartStopIdempotent(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	p, err := NewPublisher(time.Millisecond, sender, &staticFrames{rows: make([]float64, 4)})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	p.Start()
	p.Start()
	if err := p.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestNewPublisher_Rejections(t *testing.T) {
	if _, err := NewPublisher(time.Millisecond, nil, &staticFrames{rows: make([]float64, 1)}); err == nil {
		t.Error("nil sender must be rejected")
	}
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()
	if _, err := NewPublisher(time.Millisecond, sender, nil); err == nil {
		t.Error("nil frame provider must be rejected")
	}
}

func TestSender_SendAfterClose(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sender.Send([]byte{1}); err == nil {
		t.Error("Send after Close must fail")
	}
}
