package services

import (
	"context"
	"testing"
	"time"
)

func TestPushCaptureSourceDropsWhenNotStarted(t *testing.T) {
	capture := NewPushCaptureSource()

	if capture.Push(TranscriptEvent{Text: "hello"}) {
		t.Error("push before Start should be dropped")
	}
}

func TestPushCaptureSourceDeliversEvents(t *testing.T) {
	capture := NewPushCaptureSource()

	events, err := capture.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if !capture.Push(TranscriptEvent{Text: "partial"}) {
		t.Fatal("push while started should be accepted")
	}
	if !capture.Push(TranscriptEvent{Text: "final answer", Final: true}) {
		t.Fatal("push while started should be accepted")
	}

	first := <-events
	if first.Text != "partial" || first.Final {
		t.Errorf("unexpected first event: %+v", first)
	}

	second := <-events
	if !second.Final {
		t.Errorf("unexpected second event: %+v", second)
	}
}

func TestPushCaptureSourceStopClosesStream(t *testing.T) {
	capture := NewPushCaptureSource()

	events, err := capture.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	capture.Stop()

	if _, open := <-events; open {
		t.Error("expected the event stream to be closed after Stop")
	}
	if capture.Push(TranscriptEvent{Text: "late"}) {
		t.Error("push after Stop should be dropped")
	}

	// Stop is idempotent
	capture.Stop()
}

func TestPushCaptureSourceRestartsAfterStop(t *testing.T) {
	capture := NewPushCaptureSource()

	if _, err := capture.Start(context.Background()); err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	if _, err := capture.Start(context.Background()); err == nil {
		t.Error("second Start without Stop should fail")
	}

	capture.Stop()

	if _, err := capture.Start(context.Background()); err != nil {
		t.Errorf("Start after Stop returned error: %v", err)
	}
}

func TestRemoteAudioSinkPlaybackCycle(t *testing.T) {
	sink := NewRemoteAudioSink()

	playErr := make(chan error, 1)
	go func() {
		playErr <- sink.Play(context.Background(), []byte("clip"))
	}()

	var audio []byte
	deadline := time.Now().Add(time.Second)
	for audio == nil {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the pending clip")
		}
		audio = sink.TakeAudio()
	}

	if string(audio) != "clip" {
		t.Errorf("unexpected audio: %q", audio)
	}
	if sink.TakeAudio() != nil {
		t.Error("the clip should be consumed by the first TakeAudio")
	}

	sink.PlaybackDone()

	select {
	case err := <-playErr:
		if err != nil {
			t.Errorf("Play returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Play did not return after PlaybackDone")
	}
}

func TestRemoteAudioSinkPlayHonorsContext(t *testing.T) {
	sink := NewRemoteAudioSink()

	ctx, cancel := context.WithCancel(context.Background())
	playErr := make(chan error, 1)
	go func() {
		playErr <- sink.Play(ctx, []byte("clip"))
	}()

	cancel()

	select {
	case err := <-playErr:
		if err == nil {
			t.Error("expected a context error")
		}
	case <-time.After(time.Second):
		t.Fatal("Play did not return after cancellation")
	}
}

func TestStaticMediaDevices(t *testing.T) {
	granted := StaticMediaDevices{Granted: true}
	stream, err := granted.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected a stream, got error: %v", err)
	}
	stream.Stop()

	denied := StaticMediaDevices{Granted: false}
	if _, err := denied.Acquire(context.Background()); err == nil {
		t.Error("expected denial to surface as an error")
	}
}
