// Package monitoring serves the live progress of a running simulation over
// HTTP.
package monitoring

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"

	"github.com/sarchlab/mesibus/simulation"
)

// Monitor exposes a simulation's progress and statistics while it runs.
type Monitor struct {
	sim        *simulation.Simulation
	portNumber int
	openPage   bool
}

// NewMonitor creates a new Monitor.
func NewMonitor(s *simulation.Simulation) *Monitor {
	return &Monitor{sim: s}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// rejected and a random port is used instead.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is not allowed for the monitoring server. "+
				"Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowserPage makes StartServer open the page in the default browser.
func (m *Monitor) WithBrowserPage() *Monitor {
	m.openPage = true
	return m
}

// StartServer starts the monitor as a web server. It returns the address
// the server listens on.
func (m *Monitor) StartServer() string {
	r := mux.NewRouter()
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/progress", m.progress)
	r.HandleFunc("/api/stats", m.stats)

	actualPort := ":0"
	if m.portNumber >= 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		panic(err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := http.Serve(listener, r)
		if err != nil {
			panic(err)
		}
	}()

	if m.openPage {
		_ = browser.OpenURL(url + "/api/progress")
	}

	return url
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]uint64{"cycle": m.sim.Progress().Cycle})
}

func (m *Monitor) progress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.sim.Progress())
}

type coreStats struct {
	CoreID        int     `json:"core_id"`
	Misses        uint64  `json:"misses"`
	MissRate      float64 `json:"miss_rate"`
	Evictions     uint64  `json:"evictions"`
	WriteBacks    uint64  `json:"write_backs"`
	Invalidations uint64  `json:"invalidations"`
	TrafficBytes  uint64  `json:"traffic_bytes"`
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	// Cache statistics are mutated by the simulation goroutine; only the
	// snapshot is safe while the run is in flight.
	p := m.sim.Progress()
	if !p.Done {
		writeJSON(w, map[string]string{"status": "running"})
		return
	}

	rows := make([]coreStats, 0, simulation.NumCores)
	for id := 0; id < simulation.NumCores; id++ {
		s := m.sim.Core(id).Cache.Stats
		rows = append(rows, coreStats{
			CoreID:        id,
			Misses:        s.Misses(),
			MissRate:      s.MissRate(),
			Evictions:     s.Evictions,
			WriteBacks:    s.WriteBacks,
			Invalidations: s.Invalidations,
			TrafficBytes:  s.TrafficBytes,
		})
	}

	writeJSON(w, rows)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
