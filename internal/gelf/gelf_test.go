package gelf

import (
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"
)

func TestWriterSendsSlogRecordAsGELF(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	w, err := New(pc.LocalAddr().String(), "oxiforms")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer w.Close()

	logger := slog.New(slog.NewJSONHandler(w, nil))
	logger.Warn("airtable request failed", slog.Int("airtableStatus", 422), slog.String("id", "x"))

	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 8192)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(buf[:n], &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg["short_message"] != "airtable request failed" {
		t.Fatalf("short_message = %v", msg["short_message"])
	}
	if msg["level"] != float64(4) {
		t.Fatalf("level = %v", msg["level"])
	}
	if msg["_airtableStatus"] != float64(422) || msg["_record_id"] != "x" || msg["_service"] != "oxiforms" {
		t.Fatalf("unexpected fields: %v", msg)
	}
}

func TestSyslogLevel(t *testing.T) {
	cases := map[string]int{"DEBUG": 7, "INFO": 6, "INFO+2": 6, "WARN": 4, "ERROR": 3, "ERROR+4": 3, "??": 6}
	for in, want := range cases {
		if got := syslogLevel(in); got != want {
			t.Errorf("syslogLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestPlainLineFallsBack(t *testing.T) {
	w := &Writer{hostname: "h", service: "s"}
	msg := w.message([]byte("plain text\n"))
	if msg["short_message"] != "plain text" || msg["level"] != 6 {
		t.Fatalf("unexpected: %v", msg)
	}
}
