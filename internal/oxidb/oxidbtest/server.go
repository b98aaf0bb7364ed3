// Package oxidbtest runs an in-memory oxidb-server speaking the framed JSON
// protocol, for tests. It supports the commands the oxidb client issues with
// equality queries, single-key sorts and $set updates.
package oxidbtest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"sync"
	"testing"
)

type collection struct {
	docs   []map[string]any
	unique map[string]bool
}

// Server is an in-memory oxidb-server.
type Server struct {
	ln     net.Listener
	mu     sync.Mutex
	nextID int
	colls  map[string]*collection
	// Commands records every command name received, in order.
	Commands []string
}

// Start listens on a loopback port and serves until the test ends.
func Start(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("oxidbtest: listen: %v", err)
	}
	s := &Server{ln: ln, colls: map[string]*collection{}}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

// Addr returns host and port for oxidb.Connect.
func (s *Server) Addr() (string, int) {
	addr := s.ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

// Docs returns a snapshot of the documents stored in a collection.
func (s *Server) Docs(name string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.colls[name]
	if c == nil {
		return nil
	}
	out := make([]map[string]any, len(c.docs))
	for i, d := range c.docs {
		out[i] = clone(d)
	}
	return out
}

func (s *Server) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(conn, lenBuf); err != nil {
			return
		}
		payload := make([]byte, binary.LittleEndian.Uint32(lenBuf))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}
		var req map[string]any
		resp := map[string]any{"ok": true}
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = map[string]any{"ok": false, "error": err.Error()}
		} else if data, err := s.exec(req); err != nil {
			resp = map[string]any{"ok": false, "error": err.Error()}
		} else {
			resp["data"] = data
		}
		out, _ := json.Marshal(resp)
		frame := make([]byte, 4+len(out))
		binary.LittleEndian.PutUint32(frame, uint32(len(out)))
		copy(frame[4:], out)
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func (s *Server) coll(name string) *collection {
	c := s.colls[name]
	if c == nil {
		c = &collection{unique: map[string]bool{}}
		s.colls[name] = c
	}
	return c
}

func (s *Server) exec(req map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, _ := req["cmd"].(string)
	s.Commands = append(s.Commands, cmd)
	name, _ := req["collection"].(string)
	query, _ := req["query"].(map[string]any)

	switch cmd {
	case "ping":
		return "pong", nil
	case "create_index", "create_composite_index":
		s.coll(name)
		return "ok", nil
	case "create_unique_index":
		field, _ := req["field"].(string)
		s.coll(name).unique[field] = true
		return "ok", nil
	case "insert":
		c := s.coll(name)
		doc, _ := req["doc"].(map[string]any)
		if err := c.checkUnique(doc, -1); err != nil {
			return nil, err
		}
		s.nextID++
		doc["_id"] = float64(s.nextID)
		c.docs = append(c.docs, doc)
		return map[string]any{"id": float64(s.nextID)}, nil
	case "find":
		docs := s.coll(name).match(query)
		if sortSpec, ok := req["sort"].(map[string]any); ok {
			sortDocs(docs, sortSpec)
		}
		if skip, ok := req["skip"].(float64); ok {
			docs = docs[min(int(skip), len(docs)):]
		}
		if limit, ok := req["limit"].(float64); ok && int(limit) < len(docs) {
			docs = docs[:int(limit)]
		}
		out := make([]any, len(docs))
		for i, d := range docs {
			out[i] = clone(d)
		}
		return out, nil
	case "find_one":
		docs := s.coll(name).match(query)
		if len(docs) == 0 {
			return nil, nil
		}
		return clone(docs[0]), nil
	case "count":
		return map[string]any{"count": float64(len(s.coll(name).match(query)))}, nil
	case "update_one":
		c := s.coll(name)
		update, _ := req["update"].(map[string]any)
		set, _ := update["$set"].(map[string]any)
		for i, d := range c.docs {
			if !matches(d, query) {
				continue
			}
			next := clone(d)
			for k, v := range set {
				next[k] = v
			}
			if err := c.checkUnique(next, i); err != nil {
				return nil, err
			}
			c.docs[i] = next
			return map[string]any{"modified": float64(1)}, nil
		}
		return map[string]any{"modified": float64(0)}, nil
	case "delete_one":
		c := s.coll(name)
		for i, d := range c.docs {
			if matches(d, query) {
				c.docs = append(c.docs[:i], c.docs[i+1:]...)
				return map[string]any{"deleted": float64(1)}, nil
			}
		}
		return map[string]any{"deleted": float64(0)}, nil
	}
	return nil, fmt.Errorf("unknown command: %s", cmd)
}

func (c *collection) match(query map[string]any) []map[string]any {
	var out []map[string]any
	for _, d := range c.docs {
		if matches(d, query) {
			out = append(out, d)
		}
	}
	return out
}

func (c *collection) checkUnique(doc map[string]any, self int) error {
	for field := range c.unique {
		v, ok := doc[field]
		if !ok {
			continue
		}
		for i, d := range c.docs {
			if i != self && fmt.Sprint(d[field]) == fmt.Sprint(v) {
				return fmt.Errorf("unique constraint violated on %s", field)
			}
		}
	}
	return nil
}

func matches(doc, query map[string]any) bool {
	for k, want := range query {
		if fmt.Sprint(doc[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func sortDocs(docs []map[string]any, spec map[string]any) {
	for field, dir := range spec {
		desc := fmt.Sprint(dir) == "-1"
		sort.SliceStable(docs, func(i, j int) bool {
			a, b := sortKey(docs[i][field]), sortKey(docs[j][field])
			if desc {
				return a > b
			}
			return a < b
		})
	}
}

func sortKey(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%020s", strconv.FormatFloat(f, 'f', -1, 64))
	}
	return fmt.Sprint(v)
}

func clone(doc map[string]any) map[string]any {
	data, _ := json.Marshal(doc)
	var out map[string]any
	json.Unmarshal(data, &out)
	return out
}
