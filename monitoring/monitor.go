// Package monitoring turns a running simulation into a small HTTP server
// so the run can be observed from outside the process.
package monitoring

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
)

// Engine is the monitor's view of an aberration engine.
type Engine interface {
	Enabled() bool
	Dec() int
	SeriesLen() int
	Progress() (iteration, row int)
}

// Monitor serves progress and resource-usage endpoints for one run.
type Monitor struct {
	engine          Engine
	totalIterations int
	portNumber      int
}

// NewMonitor creates a Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port of the monitoring server. Ports below
// 1000 are rejected and replaced with a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is not allowed for the monitoring server. "+
				"Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine driving the run and the planned
// number of loop iterations.
func (m *Monitor) RegisterEngine(e Engine, totalIterations int) {
	m.engine = e
	m.totalIterations = totalIterations
}

type progressReply struct {
	Enabled         bool `json:"enabled"`
	Iteration       int  `json:"iteration"`
	Row             int  `json:"row"`
	TotalIterations int  `json:"total_iterations"`
	SeriesLen       int  `json:"series_len"`
	Dec             int  `json:"dec"`
}

type resourceReply struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
}

// StartServer starts serving in the background and prints the address.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()
	r.HandleFunc("/api/progress", m.progress)
	r.HandleFunc("/api/resource", m.resource)

	actualPort := ":0"
	if m.portNumber >= 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	fmt.Fprintf(os.Stderr,
		"Monitoring run with http://localhost:%d\n",
		listener.Addr().(*net.TCPAddr).Port)

	go func() {
		dieOnErr(http.Serve(listener, r))
	}()
}

func (m *Monitor) progress(w http.ResponseWriter, _ *http.Request) {
	reply := progressReply{TotalIterations: m.totalIterations}

	if m.engine != nil {
		iteration, row := m.engine.Progress()
		reply.Enabled = m.engine.Enabled()
		reply.Iteration = iteration
		reply.Row = row
		reply.SeriesLen = m.engine.SeriesLen()
		reply.Dec = m.engine.Dec()
	}

	writeJSON(w, reply)
}

func (m *Monitor) resource(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	reply := resourceReply{}

	if cpu, err := proc.CPUPercent(); err == nil {
		reply.CPUPercent = cpu
	}

	if memInfo, err := proc.MemoryInfo(); err == nil {
		reply.RSSBytes = memInfo.RSS
	}

	writeJSON(w, reply)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func dieOnErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
