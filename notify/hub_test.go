package notify

import "testing"

func TestHubPublishOrderAndUnsubscribe(t *testing.T) {
	var h Hub[int]
	var got []string
	unsubA := h.Subscribe(func(v int) { got = append(got, "a") })
	h.Subscribe(func(v int) { got = append(got, "b") })

	h.Publish(1)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("got %v", got)
	}

	unsubA()
	unsubA()
	got = nil
	h.Publish(2)
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("after unsubscribe got %v", got)
	}
	if h.Len() != 1 {
		t.Fatalf("len = %d", h.Len())
	}
}

func TestHubHandlerMayUnsubscribeItself(t *testing.T) {
	var h Hub[string]
	calls := 0
	var unsub func()
	unsub = h.Subscribe(func(string) {
		calls++
		unsub()
	})
	h.Publish("x")
	h.Publish("y")
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}
