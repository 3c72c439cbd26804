package cancel

import (
	"io"
	"strings"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestListenerSetsTokenOnSkip(t *testing.T) {
	var token Token
	pr, pw := io.Pipe()
	NewListener(pr, &token, nil).Start()

	if _, err := pw.Write([]byte("skip\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, token.Requested)
	pw.Close()
}

func TestListenerIsCaseInsensitive(t *testing.T) {
	var token Token
	NewListener(strings.NewReader("  SKIP  \n"), &token, nil).Start()
	waitFor(t, token.Requested)
}

func TestListenerIgnoresOtherInput(t *testing.T) {
	var token Token
	NewListener(strings.NewReader("pause\nskipping\nabort\n"), &token, nil).Start()

	time.Sleep(50 * time.Millisecond)
	if token.Requested() {
		t.Fatal("unrelated input must not set the token")
	}
}

func TestTokenClearRearms(t *testing.T) {
	var token Token
	token.Set()
	if !token.Requested() {
		t.Fatal("expected token set")
	}
	token.Clear()
	if token.Requested() {
		t.Fatal("expected token cleared")
	}
}
