package mailbox

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

func TestLatestKeepsNewest(t *testing.T) {
	m := New[string]()
	m.Put("empieza la detección")
	m.Put("abre el menú")
	m.Put("dame recetas")

	v, ok := m.Take()
	if !ok || v != "dame recetas" {
		t.Fatalf("expected newest value, got %q (ok=%t)", v, ok)
	}
	if _, ok := m.TryTake(); ok {
		t.Fatal("value taken twice")
	}

	puts, drops := m.Stats()
	if puts != 3 || drops != 2 {
		t.Fatalf("expected 3 puts and 2 drops, got %d and %d", puts, drops)
	}
}

func TestLatestTakeBlocks(t *testing.T) {
	m := New[int]()
	got := make(chan int, 1)
	go func() {
		v, _ := m.Take()
		got <- v
	}()

	select {
	case <-got:
		t.Fatal("Take returned before Put")
	case <-time.After(30 * time.Millisecond):
	}

	m.Put(42)
	select {
	case v := <-got:
		if v != 42 {
			t.Fatalf("expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Take did not wake up")
	}
}

func TestLatestClose(t *testing.T) {
	m := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := m.Take(); ok {
				t.Error("Take succeeded on closed mailbox")
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	m.Close()
	m.Close()
	wg.Wait()

	m.Put(1)
	if _, ok := m.TryTake(); ok {
		t.Fatal("Put after Close was stored")
	}
}

func TestFrames(t *testing.T) {
	f := NewFrames()
	if _, err := f.Latest(); !errors.Is(err, domain.ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}

	f.Publish([]byte{1}, "image/jpeg")
	id := f.Publish([]byte{2}, "image/png")

	for i := 0; i < 2; i++ {
		frame, err := f.Latest()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if frame.ID != id || frame.Data[0] != 2 || frame.MimeType != "image/png" {
			t.Fatalf("unexpected frame %+v", frame)
		}
	}
}
