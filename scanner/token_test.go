package scanner

import (
	"testing"
	"time"
)

func TestTokenCancelIdempotent(t *testing.T) {
	token := NewToken()
	if token.Cancelled() {
		t.Fatal("fresh token should not be cancelled")
	}

	token.Cancel()
	token.Cancel() // second call must be a no-op
	if !token.Cancelled() {
		t.Fatal("token should report cancelled")
	}

	select {
	case <-token.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel not closed")
	}

	select {
	case <-token.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}

func TestTokenConcurrentCancel(t *testing.T) {
	token := NewToken()
	for i := 0; i < 8; i++ {
		go token.Cancel()
	}
	select {
	case <-token.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel not closed under concurrent cancel")
	}
}
