package refresher

import (
	"testing"
	"time"
)

func TestQuietWindowWrapsMidnight(t *testing.T) {
	window, err := NewQuietWindow(19, 7, "America/Sao_Paulo")
	if err != nil {
		t.Fatalf("NewQuietWindow: %v", err)
	}
	loc, _ := time.LoadLocation("America/Sao_Paulo")

	cases := []struct {
		hour int
		want bool
	}{
		{18, false},
		{19, true},
		{23, true},
		{0, true},
		{6, true},
		{7, false},
		{12, false},
	}
	for _, tc := range cases {
		now := time.Date(2024, 2, 5, tc.hour, 30, 0, 0, loc)
		if got := window.Active(now); got != tc.want {
			t.Errorf("Active at %02d:30 = %v, want %v", tc.hour, got, tc.want)
		}
	}
}

func TestQuietWindowNonWrapping(t *testing.T) {
	window, err := NewQuietWindow(9, 17, "UTC")
	if err != nil {
		t.Fatalf("NewQuietWindow: %v", err)
	}
	if !window.Active(time.Date(2024, 2, 5, 12, 0, 0, 0, time.UTC)) {
		t.Fatal("expected 12:00 inside 09-17")
	}
	if window.Active(time.Date(2024, 2, 5, 18, 0, 0, 0, time.UTC)) {
		t.Fatal("expected 18:00 outside 09-17")
	}
}

func TestQuietWindowDisabled(t *testing.T) {
	window, err := NewQuietWindow(7, 7, "UTC")
	if err != nil {
		t.Fatalf("NewQuietWindow: %v", err)
	}
	if window.Active(time.Now()) {
		t.Fatal("expected an equal-hours window to be disabled")
	}
	if window.String() != "disabled" {
		t.Fatalf("expected \"disabled\", got %q", window.String())
	}

	var nilWindow *QuietWindow
	if nilWindow.Active(time.Now()) {
		t.Fatal("expected a nil window to be inactive")
	}
}

func TestQuietWindowValidation(t *testing.T) {
	if _, err := NewQuietWindow(-1, 7, "UTC"); err == nil {
		t.Fatal("expected an error for a negative hour")
	}
	if _, err := NewQuietWindow(19, 24, "UTC"); err == nil {
		t.Fatal("expected an error for hour 24")
	}
	if _, err := NewQuietWindow(19, 7, "Mars/Olympus"); err == nil {
		t.Fatal("expected an error for an unknown timezone")
	}
}

func TestQuietWindowString(t *testing.T) {
	window, err := NewQuietWindow(19, 7, "America/Sao_Paulo")
	if err != nil {
		t.Fatalf("NewQuietWindow: %v", err)
	}
	if got := window.String(); got != "19:00-07:00 America/Sao_Paulo" {
		t.Fatalf("unexpected description %q", got)
	}
}
