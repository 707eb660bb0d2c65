package localmedia

import (
	"testing"
	"time"
)

func TestWindowsSplitsIntoBoundedChunks(t *testing.T) {
	ws := Windows(40*time.Minute, 15*time.Minute)
	if len(ws) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(ws))
	}
	if ws[2].Start != 30*time.Minute || ws[2].Length != 10*time.Minute {
		t.Fatalf("unexpected last window: %+v", ws[2])
	}
	for i, w := range ws {
		if w.Length > 15*time.Minute {
			t.Fatalf("window %d exceeds chunk length: %s", i, w.Length)
		}
	}
}

func TestWindowsExactMultiple(t *testing.T) {
	ws := Windows(30*time.Minute, 15*time.Minute)
	if len(ws) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(ws))
	}
}

func TestWindowsUnknownDuration(t *testing.T) {
	ws := Windows(0, 15*time.Minute)
	if len(ws) != 1 || ws[0].Length != 0 {
		t.Fatalf("expected one open window, got %+v", ws)
	}
}

func TestParseProbeDuration(t *testing.T) {
	d, err := parseProbeDuration("125.500000\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != 125500*time.Millisecond {
		t.Fatalf("got %s", d)
	}
	if _, err := parseProbeDuration("N/A"); err == nil {
		t.Fatalf("expected error for N/A")
	}
}

func TestAudioOptionsDefaults(t *testing.T) {
	var o AudioOptions
	if o.Ext() != ".mp3" || o.MIME() != "audio/mpeg" {
		t.Fatalf("unexpected defaults: %s %s", o.Ext(), o.MIME())
	}
	if (AudioOptions{Format: "FLAC"}).Ext() != ".flac" {
		t.Fatalf("format should be case-insensitive")
	}
}
