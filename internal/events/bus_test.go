package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan LEDValueChangedEvent, 1)

	unsub := bus.Subscribe(func(e LEDValueChangedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(LEDValueChangedEvent{Value: 6, Previous: 5, Source: "button1", Mode: "absolute"})

	got := <-received
	if got.Value != 6 || got.Previous != 5 {
		t.Errorf("got %+v, want value 6 previous 5", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan SpeakerChangedEvent, 1)

	unsub := bus.Subscribe(func(e SpeakerChangedEvent) {
		received <- e
	})

	bus.Publish(SpeakerChangedEvent{On: true})
	<-received

	unsub()

	bus.Publish(SpeakerChangedEvent{On: false})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	ledReceived := make(chan bool, 1)
	buttonReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ LEDValueChangedEvent) {
		ledReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ ButtonPressedEvent) {
		buttonReceived <- true
	})
	defer unsub2()

	bus.Publish(LEDValueChangedEvent{Value: 1})
	<-ledReceived

	select {
	case <-buttonReceived:
		t.Fatal("Button subscriber should NOT have received LEDValueChangedEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ ButtonPressedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(ButtonPressedEvent{
					Button:    "button1",
					Action:    "increment",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"LEDValueChanged", LEDValueChangedEvent{Value: 3}},
		{"ButtonPressed", ButtonPressedEvent{Button: "button2"}},
		{"SpeakerChanged", SpeakerChangedEvent{On: true}},
		{"BoardState", BoardStateEvent{State: "ready"}},
		{"LogEntry", LogEntryEvent{Message: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case LEDValueChangedEvent:
				unsub = bus.Subscribe(func(e LEDValueChangedEvent) { received <- e })
			case ButtonPressedEvent:
				unsub = bus.Subscribe(func(e ButtonPressedEvent) { received <- e })
			case SpeakerChangedEvent:
				unsub = bus.Subscribe(func(e SpeakerChangedEvent) { received <- e })
			case BoardStateEvent:
				unsub = bus.Subscribe(func(e BoardStateEvent) { received <- e })
			case LogEntryEvent:
				unsub = bus.Subscribe(func(e LogEntryEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestBus_NilPublish(_ *testing.T) {
	var bus *Bus
	bus.Publish(BoardStateEvent{State: "ready"})
}

func TestEventJSONSerialization(t *testing.T) {
	data, err := json.Marshal(LEDValueChangedEvent{
		Value:     6,
		Previous:  5,
		Source:    "button1",
		Mode:      "absolute",
		Timestamp: "2025-01-27T10:30:00Z",
	})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if result["value"] != float64(6) || result["source"] != "button1" {
		t.Errorf("unexpected JSON: %s", data)
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[ButtonPressedEvent](bus, ch)
	defer unsub()

	bus.Publish(ButtonPressedEvent{Button: "button2", Action: "decrement"})

	received := <-ch
	pressed, ok := received.(ButtonPressedEvent)
	if !ok {
		t.Fatalf("Expected ButtonPressedEvent, got %T", received)
	}
	if pressed.Button != "button2" {
		t.Errorf("Expected button2, got %s", pressed.Button)
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any) // No buffer

	unsub := SubscribeToChannel[BoardStateEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(BoardStateEvent{State: "ready"})
		done <- true
	}()

	<-done // Should complete without blocking
}
