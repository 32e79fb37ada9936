package core

import (
	"testing"
	"time"
)

func TestPhaseTransitionsPublishEvents(t *testing.T) {
	bus := NewEventBus()
	var transitions []ConnectionStatePayload
	bus.Subscribe(EventConnectionStateChanged, func(e Event) {
		transitions = append(transitions, e.Payload.(ConnectionStatePayload))
	})

	cs := NewConnectionState(bus)
	cs.BeginConnecting()
	cs.SetConnected(Endpoint{ID: "us-1"}, time.Now())
	cs.BeginDisconnecting()
	cs.SetDisconnected(nil)

	want := []ConnectionStatePayload{
		{PhaseDisconnected, PhaseConnecting},
		{PhaseConnecting, PhaseConnected},
		{PhaseConnected, PhaseDisconnecting},
		{PhaseDisconnecting, PhaseDisconnected},
	}
	if len(transitions) != len(want) {
		t.Fatalf("got %d transitions, want %d", len(transitions), len(want))
	}
	for i, w := range want {
		if transitions[i] != w {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], w)
		}
	}
}

func TestSetStatsIgnoredUnlessConnected(t *testing.T) {
	cs := NewConnectionState(nil)

	cs.SetStats(1, 2, 3, 4)
	if got := cs.Snapshot().Stats; got.TotalDownloadBytes != 0 {
		t.Errorf("stats accepted while disconnected: %+v", got)
	}

	cs.BeginConnecting()
	cs.SetConnected(Endpoint{ID: "us-1"}, time.Unix(1700000000, 0))
	cs.SetStats(10, 20, 30, 40)

	got := cs.Snapshot().Stats
	if got.UploadBytesPerSec != 10 || got.TotalDownloadBytes != 40 {
		t.Errorf("stats = %+v", got)
	}
	if got.ConnectedAt != 1700000000 {
		t.Errorf("ConnectedAt = %d", got.ConnectedAt)
	}

	cs.BeginDisconnecting()
	cs.SetStats(99, 99, 99, 99)
	if got := cs.Snapshot().Stats; got.UploadBytesPerSec == 99 {
		t.Error("late stats sample landed after leaving Connected")
	}
}

func TestSetDisconnectedClearsActiveAndStats(t *testing.T) {
	cs := NewConnectionState(nil)
	cs.BeginConnecting()
	cs.SetConnected(Endpoint{ID: "us-1"}, time.Now())
	cs.SetStats(1, 2, 3, 4)

	cs.SetDisconnected(&LastError{Kind: "network", Message: "gone"})

	snap := cs.Snapshot()
	if snap.Phase != "disconnected" {
		t.Errorf("phase = %s", snap.Phase)
	}
	if snap.ActiveEndpoint != nil {
		t.Error("active endpoint survived disconnect")
	}
	if snap.Stats != (TrafficStats{}) {
		t.Errorf("stats not zeroed: %+v", snap.Stats)
	}
	if snap.LastError == nil || snap.LastError.Kind != "network" {
		t.Errorf("lastError = %+v", snap.LastError)
	}
}

func TestBeginConnectingClearsLastError(t *testing.T) {
	cs := NewConnectionState(nil)
	cs.SetDisconnected(&LastError{Kind: "auth", Message: "expired"})
	cs.BeginConnecting()

	if cs.Snapshot().LastError != nil {
		t.Error("lastError survived BeginConnecting")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	cs := NewConnectionState(nil)
	cs.SetSelected(&Endpoint{ID: "us-1", Name: "US East"})

	snap := cs.Snapshot()
	snap.SelectedEndpoint.Name = "mutated"

	if got, _ := cs.Selected(); got.Name != "US East" {
		t.Error("snapshot mutation leaked into state")
	}
}
