// Command hlasmwatch is a small development dashboard: it polls a set of
// HLASM source files for changes, re-analyzes each on change, and
// broadcasts the resulting diagnostics to every connected browser over a
// WebSocket, following the Upgrader/Clients broadcast shape of
// internal/network's WebSocketListen/WebSocketBroadcast.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
	"hlasmcore/internal/pipeline"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8765", "address to serve the dashboard on")
	interval := flag.Duration("interval", 500*time.Millisecond, "poll interval for source changes")
	flag.Parse()
	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: hlasmwatch [flags] <file...>")
		os.Exit(2)
	}

	hub := newHub()
	w := &watcher{hub: hub, files: files, interval: *interval}
	go w.run()

	http.HandleFunc("/", serveDashboard)
	http.HandleFunc("/ws", hub.serveWS)
	fmt.Printf("hlasmwatch: serving %d file(s) on http://%s\n", len(files), *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		fmt.Fprintln(os.Stderr, "hlasmwatch:", err)
		os.Exit(1)
	}
}

// fileReport is one file's latest analysis, the payload broadcast to every
// connected client.
type fileReport struct {
	File       string                    `json:"file"`
	ModTime    int64                     `json:"modTime"`
	Diags      []diagnostics.Diagnostic  `json:"diagnostics"`
	Statements int                       `json:"statements"`
}

// watcher polls files for mtime changes and pushes a fresh report to hub
// whenever one changes, without ever needing an OS-level file-event API.
type watcher struct {
	hub      *hub
	files    []string
	interval time.Duration

	mu      sync.Mutex
	modTime map[string]time.Time
}

func (w *watcher) run() {
	w.modTime = make(map[string]time.Time, len(w.files))
	for {
		for _, file := range w.files {
			info, err := os.Stat(file)
			if err != nil {
				continue
			}
			w.mu.Lock()
			last, seen := w.modTime[file]
			changed := !seen || info.ModTime().After(last)
			if changed {
				w.modTime[file] = info.ModTime()
			}
			w.mu.Unlock()
			if changed {
				w.hub.broadcast(analyze(file, info.ModTime()))
			}
		}
		time.Sleep(w.interval)
	}
}

func analyze(file string, modTime time.Time) fileReport {
	data, err := os.ReadFile(file)
	if err != nil {
		return fileReport{File: file, ModTime: modTime.Unix(), Diags: []diagnostics.Diagnostic{
			{Code: "S100", Severity: diagnostics.SeverityError, Message: err.Error()},
		}}
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	col := &diagnostics.Collector{}
	stmts := 0
	p := pipeline.New(simpleSource(lines), nil, diagnostics.Forwarding{File: file, Inner: col}, pipeline.Hooks{
		OnStatement: func(_ *ast.ID, _ ast.Range, _ string, _ ast.Range, _ []ast.Operand, _ ast.Range) {
			stmts++
		},
	})
	_ = p.Run()
	return fileReport{File: file, ModTime: modTime.Unix(), Diags: col.Diags, Statements: stmts}
}

type simpleSource []string

func (s simpleSource) Line(n int) (string, bool) {
	if n < 0 || n >= len(s) {
		return "", false
	}
	return s[n], true
}

// hub tracks connected dashboard clients and fans out each new report,
// mirroring WebSocketServer.Clients/WebSocketBroadcast's shape.
type hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]bool),
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *hub) broadcast(report fileReport) {
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c)
		}
	}
}

func serveDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, dashboardHTML)
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head><title>hlasmwatch</title></head>
<body>
<h1>hlasmwatch</h1>
<pre id="log"></pre>
<script>
const log = document.getElementById("log");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
  const report = JSON.parse(ev.data);
  log.textContent = JSON.stringify(report, null, 2) + "\n\n" + log.textContent;
};
</script>
</body>
</html>
`
