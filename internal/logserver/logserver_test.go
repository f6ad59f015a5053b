package logserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHubSplitsLinesAndKeepsHistory(t *testing.T) {
	hub := NewHub(3)
	_, _ = hub.Write([]byte("one\ntw"))
	_, _ = hub.Write([]byte("o\nthree\nfour\n"))
	got := hub.History()
	want := []string{"two", "three", "four"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestHubBroadcastAndDrop(t *testing.T) {
	hub := NewHub(10)
	sub, history := hub.Subscribe()
	defer sub.Close()
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %v", history)
	}
	for i := 0; i < subscriberDepth+5; i++ {
		_, _ = hub.Write([]byte("x\n"))
	}
	if got := len(sub.Lines()); got != subscriberDepth {
		t.Fatalf("expected %d buffered lines, got %d", subscriberDepth, got)
	}
	if dropped := sub.TakeDropped(); dropped != 5 {
		t.Fatalf("expected 5 dropped, got %d", dropped)
	}
	if dropped := sub.TakeDropped(); dropped != 0 {
		t.Fatalf("expected dropped reset, got %d", dropped)
	}
	sub.Close()
	sub.Close()
	if hub.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
	_, _ = hub.Write([]byte("after close\n"))
}

func startServer(t *testing.T, hub *Hub) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "log.sock")
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- NewServer(Config{SocketPath: socket}, hub).ListenAndServe(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("server: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("server did not stop")
		}
		if _, err := os.Stat(socket); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected socket removed, stat err=%v", err)
		}
	})
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", socket); err == nil {
			// An idle client is closed by the server after the request timeout.
			_ = conn.Close()
			return socket
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server did not start")
	return ""
}

func TestFetchGetAll(t *testing.T) {
	hub := NewHub(10)
	_, _ = hub.Write([]byte("alpha\nbeta\n"))
	socket := startServer(t, hub)

	var out bytes.Buffer
	if err := Fetch(context.Background(), socket, false, &out); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if out.String() != "alpha\nbeta\n" {
		t.Fatalf("unexpected logs %q", out.String())
	}
}

func TestUnknownRequestIsAnsweredLikeGetAll(t *testing.T) {
	hub := NewHub(10)
	_, _ = hub.Write([]byte("line\n"))
	socket := startServer(t, hub)

	conn, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], 99)
	if _, err := conn.Write(raw[:]); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "line\n" {
		t.Fatalf("unexpected answer %q", data)
	}
}

func TestFetchFollowStreamsNewLines(t *testing.T) {
	hub := NewHub(10)
	_, _ = hub.Write([]byte("old\n"))
	socket := startServer(t, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := Fetch(ctx, socket, true, pw)
		_ = pw.Close()
		done <- err
	}()

	scanner := bufio.NewScanner(pr)
	if !scanner.Scan() || scanner.Text() != "old" {
		t.Fatalf("expected history line, got %q", scanner.Text())
	}
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	_, _ = hub.Write([]byte("new\n"))
	if !scanner.Scan() || scanner.Text() != "new" {
		t.Fatalf("expected streamed line, got %q", scanner.Text())
	}

	cancel()
	go func() { _, _ = io.Copy(io.Discard, pr) }()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("follow did not stop")
	}
}

func TestParseRequest(t *testing.T) {
	cases := map[uint64]Request{0: RequestUnknown, 1: RequestGetAll, 2: RequestFollow, 7: RequestUnknown}
	for in, want := range cases {
		if got := parseRequest(in); got != want {
			t.Fatalf("parse %d: expected %s, got %s", in, want, got)
		}
	}
}

func TestFetchWithoutServer(t *testing.T) {
	err := Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), false, io.Discard)
	if err == nil {
		t.Fatalf("expected connect error")
	}
}

func TestLagReporterCoalescesWarnings(t *testing.T) {
	start := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	lag := lagReporter{interval: 5 * time.Second}

	if _, ok := lag.note(0, start); ok {
		t.Fatalf("expected no report without drops")
	}
	if total, ok := lag.note(3, start); !ok || total != 3 {
		t.Fatalf("expected first drop reported with 3, got %d %v", total, ok)
	}
	for i := 1; i <= 4; i++ {
		if _, ok := lag.note(2, start.Add(time.Duration(i)*time.Second)); ok {
			t.Fatalf("expected drops within the interval to be held back")
		}
	}
	if lag.pending != 8 {
		t.Fatalf("expected 8 pending drops, got %d", lag.pending)
	}
	if total, ok := lag.note(1, start.Add(5*time.Second)); !ok || total != 9 {
		t.Fatalf("expected coalesced report of 9, got %d %v", total, ok)
	}
	if _, ok := lag.note(0, start.Add(time.Minute)); ok {
		t.Fatalf("expected no report once drained")
	}
}
