// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"

	"conch/pkg/testsig"
)

func TestResampler_OutputLength(t *testing.T) {
	t.Parallel()
	cases := []struct {
		inRate, outRate float64
		frames          int
		want            int
	}{
		{48000, 16000, 48000, 16000},
		{44100, 16000, 44100, 16000},
		{44100, 16000, 4410, 1600},
		{16000, 16000, 1234, 1234},
		{8000, 16000, 100, 200},
		{44100, 16000, 333, 121}, // round(333*16000/44100) = 121
	}
	for _, c := range cases {
		r, err := NewResampler(c.inRate, 1, c.outRate)
		if err != nil {
			t.Fatalf("NewResampler: %v", err)
		}
		out := r.Process(testsig.Sine(c.frames, c.inRate, 440))
		if len(out) != c.want {
			t.Errorf("%g->%g Hz with %d frames: len = %d, want %d",
				c.inRate, c.outRate, c.frames, len(out), c.want)
		}
	}
}

// Downsampling a sine must keep its frequency: count zero crossings
// before and after and compare against the rate ratio.
func TestResampler_PreservesFrequency(t *testing.T) {
	t.Parallel()
	const inRate, outRate = 48000.0, 16000.0
	r, err := NewResampler(inRate, 1, outRate)
	if err != nil {
		t.Fatalf("NewResampler: %v", err)
	}

	in := testsig.Sine(48000, inRate, 440) // one second
	out := r.Process(in)

	crossings := func(s []float32) int {
		n := 0
		for i := 1; i < len(s); i++ {
			if (s[i-1] < 0) != (s[i] < 0) {
				n++
			}
		}
		return n
	}

	// One second of 440 Hz has ~880 zero crossings at either rate.
	got := crossings(out)
	if got < 870 || got > 890 {
		t.Errorf("zero crossings after resample = %d, want ~880", got)
	}
}

func TestResampler_Downmix(t *testing.T) {
	t.Parallel()
	r, err := NewResampler(48000, 2, 48000)
	if err != nil {
		t.Fatalf("NewResampler: %v", err)
	}

	// Interleaved stereo: L=0.5, R=-0.5 averages to silence; L=R=0.25
	// stays 0.25.
	in := []float32{0.5, -0.5, 0.25, 0.25}
	out := r.Process(in)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0] != 0 || out[1] != 0.25 {
		t.Errorf("downmix = %v, want [0 0.25]", out)
	}
}

func TestResampler_SanitizesNonFinite(t *testing.T) {
	t.Parallel()
	r, err := NewResampler(16000, 1, 16000)
	if err != nil {
		t.Fatalf("NewResampler: %v", err)
	}

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	out := r.Process([]float32{0.1, nan, inf, -0.1})
	want := []float32{0.1, 0, 0, -0.1}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("sanitized output = %v, want %v", out, want)
		}
	}
}

func TestResampler_DownmixIntoNoAllocs(t *testing.T) {
	r, err := NewResampler(48000, 2, 48000)
	if err != nil {
		t.Fatalf("NewResampler: %v", err)
	}
	in := testsig.Sine(1024, 48000, 440) // 512 stereo frames
	dst := make([]float32, 512)

	allocs := testing.AllocsPerRun(100, func() {
		r.DownmixInto(dst, in)
	})
	if allocs != 0 {
		t.Errorf("DownmixInto allocates %.0f times per call, want 0", allocs)
	}
}

func TestNewResampler_Rejections(t *testing.T) {
	t.Parallel()
	if _, err := NewResampler(0, 1, 16000); err == nil {
		t.Error("zero input rate must be rejected")
	}
	if _, err := NewResampler(48000, 0, 16000); err == nil {
		t.Error("zero channels must be rejected")
	}
	if _, err := NewResampler(48000, 1, -1); err == nil {
		t.Error("negative output rate must be rejected")
	}
}

func BenchmarkResamplerProcess(b *testing.B) {
	r, _ := NewResampler(48000, 1, 16000)
	in := testsig.Sine(48000, 48000, 440)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Process(in)
	}
}
