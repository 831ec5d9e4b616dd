package conversion

import (
	"math"
	"testing"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"01:02:03.50", 3723.5, true},
		{"00:00:10", 10, true},
		{"00:00:00.000000", 0, true},
		{"100:00:00.0", 360000, true},
		{"-00:00:00.500000", -0.5, true},
		{"N/A", 0, false},
		{"", 0, false},
		{"1:2", 0, false},
		{"aa:bb:cc", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseTime(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ParseTime(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestClampPercent(t *testing.T) {
	tests := map[float64]float64{-5: 0, 0: 0, 42.5: 42.5, 100: 100, 180: 100}
	for in, want := range tests {
		if got := clampPercent(in); got != want {
			t.Errorf("clampPercent(%v) = %v, want %v", in, got, want)
		}
	}
	if got := clampPercent(math.NaN()); got != 0 {
		t.Errorf("clampPercent(NaN) = %v, want 0", got)
	}
}

func TestProgressParserWithDuration(t *testing.T) {
	parser := progressParser{duration: 200}
	update, ok := parser.parse("out_time=00:01:30.000000")
	if !ok {
		t.Fatal("expected update")
	}
	if update.Percent != 45 || update.Message != "Converting... 45.0%" {
		t.Fatalf("unexpected update: %+v", update)
	}

	update, ok = parser.parse("out_time=00:05:00.000000")
	if !ok || update.Percent != 100 {
		t.Fatalf("expected clamp to 100, got %+v", update)
	}
}

func TestProgressParserWithoutDuration(t *testing.T) {
	parser := progressParser{}
	update, ok := parser.parse("out_time=00:00:12.340000")
	if !ok {
		t.Fatal("expected update")
	}
	if update.Percent != 50 || update.Message != "Converting... 12.3s" {
		t.Fatalf("unexpected update: %+v", update)
	}
}

func TestProgressParserIgnoresOtherLines(t *testing.T) {
	parser := progressParser{duration: 10}
	for _, line := range []string{
		"frame=120",
		"bitrate=1200.5kbits/s",
		"out_time=N/A",
		"out_time_us=1000000",
		"progress=continue",
		"garbage without equals",
		"",
	} {
		if update, ok := parser.parse(line); ok {
			t.Errorf("expected %q to be ignored, got %+v", line, update)
		}
	}
}

func TestProgressParserEnd(t *testing.T) {
	update, ok := progressParser{}.parse("progress=end")
	if !ok || update.Percent != 100 || update.Message != MessageFinalizing {
		t.Fatalf("unexpected end update: %+v ok=%v", update, ok)
	}
}

func TestChannelRelayKeepsNewestInOrder(t *testing.T) {
	ch := make(chan ProgressEvent, 2)
	relay := ChannelRelay(ch)
	relay(0, MessageStarting)
	relay(25, "Converting... 25.0%")
	relay(50, "Converting... 50.0%")
	relay(100, MessageDone)

	first := <-ch
	second := <-ch
	if first.Percent != 50 || second.Percent != 100 || second.Message != MessageDone {
		t.Fatalf("unexpected relay contents: %+v %+v", first, second)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra event %+v", extra)
	default:
	}
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	buf := newTailBuffer(8)
	_, _ = buf.Write([]byte("0123"))
	_, _ = buf.Write([]byte("4567"))
	_, _ = buf.Write([]byte("89"))
	if got := buf.String(); got != "23456789" {
		t.Fatalf("got %q", got)
	}
	_, _ = buf.Write([]byte("abcdefghijkl"))
	if got := buf.String(); got != "efghijkl" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs("/in/clip.mov", "/out/clip_HDR.mp4")
	if args[0] != "-y" || args[len(args)-1] != "/out/clip_HDR.mp4" {
		t.Fatalf("unexpected framing: %v", args)
	}
	checks := map[string]string{
		"-i":               "/in/clip.mov",
		"-c:v":             "libx265",
		"-pix_fmt":         "yuv420p10le",
		"-color_primaries": "bt2020",
		"-colorspace":      "bt2020nc",
		"-color_trc":       "arib-std-b67",
		"-x265-params":     "hdr-opt=1:repeat-headers=1:colorprim=bt2020:transfer=arib-std-b67:colormatrix=bt2020nc:atc-sei=18:pic-struct=0",
		"-tag:v":           "hvc1",
		"-c:a":             "aac",
		"-b:a":             "256k",
		"-progress":        "pipe:1",
	}
	for flag, want := range checks {
		if got := findArg(args, flag); got != want {
			t.Errorf("%s = %q, want %q", flag, got, want)
		}
	}
}

func findArg(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
