package system

import (
	"context"
	"fmt"
	"testing"
)

type recordingService struct {
	NoopService
	startErr error
	events   *[]string
}

func (s *recordingService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	*s.events = append(*s.events, "start:"+s.Name())
	return nil
}

func (s *recordingService) Stop(ctx context.Context) error {
	*s.events = append(*s.events, "stop:"+s.Name())
	return nil
}

func TestStartStopOrder(t *testing.T) {
	var events []string
	m := NewManager()

	a := &recordingService{NoopService: NoopService{ServiceName: "a"}, events: &events}
	b := &recordingService{NoopService: NoopService{ServiceName: "b"}, events: &events}
	if err := m.Register(a); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(b); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx := context.Background()
	if err := m.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := m.StopAll(ctx); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestStartAllRollsBackOnFailure(t *testing.T) {
	var events []string
	m := NewManager()

	ok := &recordingService{NoopService: NoopService{ServiceName: "ok"}, events: &events}
	bad := &recordingService{
		NoopService: NoopService{ServiceName: "bad"},
		startErr:    fmt.Errorf("boom"),
		events:      &events,
	}
	if err := m.Register(ok); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(bad); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := m.StartAll(context.Background()); err == nil {
		t.Fatal("expected StartAll to fail")
	}
	if len(events) != 2 || events[1] != "stop:ok" {
		t.Fatalf("expected the started service to be stopped, got %v", events)
	}
}

func TestRegisterValidation(t *testing.T) {
	m := NewManager()

	if err := m.Register(nil); err == nil {
		t.Fatal("expected an error for a nil service")
	}
	if err := m.Register(&NoopService{ServiceName: "x"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(&NoopService{ServiceName: "x"}); err == nil {
		t.Fatal("expected an error for a duplicate name")
	}

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := m.Register(&NoopService{ServiceName: "late"}); err == nil {
		t.Fatal("expected an error when registering after StartAll")
	}
}
