package domain_test

import (
	"testing"
	"time"

	"github.com/samirrijal/routereplay/internal/core/domain"
)

func TestReplayStatus_Line(t *testing.T) {
	st := domain.ReplayStatus{
		Current: &domain.Sample{
			Lat:       17.3850441,
			Lng:       78.486671,
			Timestamp: time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC),
		},
		SpeedKmH: 23.456,
	}

	want := "17.385044, 78.486671 | 09:05:07 | 23.46 km/h"
	if got := st.Line(time.UTC); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestReplayStatus_LineWithoutRoute(t *testing.T) {
	if got := (domain.ReplayStatus{}).Line(time.UTC); got != "no route loaded" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestControlCommand_Valid(t *testing.T) {
	for _, c := range []domain.ControlCommand{domain.CommandToggle, domain.CommandReset, domain.CommandReload} {
		if !c.Valid() {
			t.Errorf("expected %q to be valid", c)
		}
	}
	if domain.ControlCommand("rewind").Valid() {
		t.Error("expected rewind to be invalid")
	}
}
