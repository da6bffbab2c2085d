// The master is the server directory: game servers register and heartbeat
// over HTTP, clients fetch the list to pick a lobby. State is in memory only;
// a server that stops heartbeating ages out.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"airlock/shared/logging"
)

func main() {
	port := flag.Int("port", 8080, "HTTP listen port")
	ttl := flag.Duration("ttl", 90*time.Second, "server TTL before expiry")
	logPath := flag.String("log", "", "log file path (empty for stderr)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := logging.New(*logPath, *debug)
	defer log.Sync()

	reg := NewRegistry(*ttl, log)
	defer reg.Stop()

	api := &api{reg: reg, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /servers", api.listServers)
	mux.HandleFunc("POST /servers/register", api.registerServer)
	mux.HandleFunc("POST /servers/heartbeat", api.heartbeat)
	mux.HandleFunc("GET /health", api.health)

	addr := fmt.Sprintf(":%d", *port)
	log.Infof("[master] listening on %s (ttl=%s)", addr, *ttl)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[master] fatal: %v", err)
	}
}
