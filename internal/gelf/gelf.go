package gelf

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// Writer sends GELF messages over UDP and implements io.Writer so it can
// sit behind a slog JSON handler via io.MultiWriter.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

func (w *Writer) Close() error {
	return w.conn.Close()
}

// Write implements io.Writer. Each call carries one slog JSON record and
// sends one GELF message; record attributes become additional fields.
func (w *Writer) Write(p []byte) (int, error) {
	payload, err := json.Marshal(w.message(p))
	if err != nil {
		return len(p), nil // don't fail the log call
	}

	// Fire-and-forget
	w.conn.Write(payload)
	return len(p), nil
}

func (w *Writer) message(p []byte) map[string]any {
	msg := map[string]any{
		"version":   "1.1",
		"host":      w.hostname,
		"timestamp": float64(time.Now().UnixNano()) / 1e9,
		"level":     6,
		"_service":  w.service,
	}

	var rec map[string]any
	if err := json.Unmarshal(p, &rec); err != nil {
		msg["short_message"] = strings.TrimRight(string(p), "\n")
		return msg
	}

	short, _ := rec["msg"].(string)
	msg["short_message"] = short
	if lvl, ok := rec["level"].(string); ok {
		msg["level"] = syslogLevel(lvl)
	}
	if ts, ok := rec["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			msg["timestamp"] = float64(t.UnixNano()) / 1e9
		}
	}
	for k, v := range rec {
		switch k {
		case "msg", "level", "time":
			continue
		case "id":
			k = "record_id" // _id is reserved by GELF
		}
		msg["_"+k] = v
	}
	return msg
}

// syslogLevel maps slog level names, including offsets like "INFO+2", onto
// syslog severities.
func syslogLevel(level string) int {
	switch {
	case strings.HasPrefix(level, "DEBUG"):
		return 7
	case strings.HasPrefix(level, "INFO"):
		return 6
	case strings.HasPrefix(level, "WARN"):
		return 4
	case strings.HasPrefix(level, "ERROR"):
		return 3
	}
	return 6
}
