// Package monitoring serves the live state of a running simulation over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"go.uber.org/zap"

	"github.com/sarchlab/chainsim/metrics"
	"github.com/sarchlab/chainsim/sim/id"
	"github.com/sarchlab/chainsim/sim/queueing"
	"github.com/sarchlab/chainsim/sim/simulation"
	"github.com/sarchlab/chainsim/sim/timing"
)

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation.
type Monitor struct {
	portNumber  int
	openBrowser bool
	logger      *zap.Logger
	collector   *metrics.Collector

	lock          sync.RWMutex
	timeTeller    timing.TimeTeller
	simulations   []*simulation.Simulation
	queues        []*queueing.BufferedQueue
	progressHooks map[*simulation.Simulation]*ProgressHook

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		logger:        zap.NewNop(),
		progressHooks: make(map[*simulation.Simulation]*ProgressHook),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("port number not allowed, using a random port instead",
			zap.Int("port", portNumber))
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger *zap.Logger) *Monitor {
	m.logger = logger
	return m
}

// WithBrowser makes StartServer open the monitoring page in a browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithCollector sets the metrics collector served under /metrics.
func (m *Monitor) WithCollector(c *metrics.Collector) *Monitor {
	m.collector = c
	return m
}

// RegisterSimulation registers a simulation to be monitored. Its queue is
// registered and its workers feed two progress bars. The simulation must not
// have started yet.
func (m *Monitor) RegisterSimulation(s *simulation.Simulation) {
	m.lock.Lock()
	m.simulations = append(m.simulations, s)
	if m.timeTeller == nil {
		m.timeTeller = s.Clock()
	}
	m.lock.Unlock()

	m.RegisterQueue(s.Queue())

	total := uint64(s.Config().ProcessCount)
	hook := &ProgressHook{
		Generated: m.CreateProgressBar(s.Generator().Name(), total),
		Serviced:  m.CreateProgressBar(s.Server().Name(), total),
	}

	s.Generator().AcceptHook(hook)
	s.Server().AcceptHook(hook)

	m.lock.Lock()
	m.progressHooks[s] = hook
	m.lock.Unlock()
}

// CompleteSimulation removes the progress bars of a finished simulation. The
// simulation itself stays listed under /api/state.
func (m *Monitor) CompleteSimulation(s *simulation.Simulation) {
	m.lock.Lock()
	hook, ok := m.progressHooks[s]
	delete(m.progressHooks, s)
	m.lock.Unlock()

	if !ok {
		return
	}

	m.CompleteProgressBar(hook.Generated)
	m.CompleteProgressBar(hook.Serviced)
}

// RegisterQueue registers a queue to be monitored.
func (m *Monitor) RegisterQueue(q *queueing.BufferedQueue) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.queues = append(m.queues, q)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.NewParallelIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP handler of the monitor.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/state", m.state)
	r.HandleFunc("/api/queues", m.listQueues)
	r.HandleFunc("/api/queue/{name}", m.queueDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/chains", m.listChains)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	if m.collector != nil {
		r.Handle("/metrics", m.collector.Handler())
	}

	return r
}

// StartServer starts the monitor as a web server and returns the address it
// listens on.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", "localhost:"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.logger.Info("monitoring simulation", zap.String("url", url))

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitoring server stopped", zap.Error(err))
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			m.logger.Warn("cannot open browser", zap.Error(err))
		}
	}

	return url, nil
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	tt := m.timeTeller
	m.lock.RUnlock()

	now := 0.0
	if tt != nil {
		now = tt.Now()
	}

	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

type stateRsp struct {
	ID        string            `json:"id"`
	Generator string            `json:"generator"`
	Server    string            `json:"server"`
	Result    simulation.Result `json:"result"`
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	rsp := make([]stateRsp, 0, len(m.simulations))
	for _, s := range m.simulations {
		rsp = append(rsp, stateRsp{
			ID:        s.ID(),
			Generator: s.Generator().State(),
			Server:    s.Server().State(),
			Result:    s.Result(),
		})
	}
	m.lock.RUnlock()

	m.writeJSON(w, rsp)
}

func (m *Monitor) listQueues(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	names := make([]string, 0, len(m.queues))
	for _, q := range m.queues {
		names = append(names, q.Name())
	}
	m.lock.RUnlock()

	m.writeJSON(w, names)
}

func (m *Monitor) queueDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	q := m.findQueueOr404(w, name)
	if q == nil {
		return
	}

	snapshot := q.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(3)

	if err := serializer.Serialize(w); err != nil {
		m.logger.Error("cannot serialize queue", zap.Error(err))
	}
}

type fieldReq struct {
	QueueName string `json:"queue_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	if err := json.Unmarshal([]byte(jsonString), &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := m.findQueueOr404(w, req.QueueName)
	if q == nil {
		return
	}

	snapshot := q.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(1)

	err := serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := serializer.Serialize(w); err != nil {
		m.logger.Error("cannot serialize field", zap.Error(err))
	}
}

type chainRsp struct {
	Queue string `json:"queue"`
	Chain uint64 `json:"chain"`
	Level int    `json:"level"`
	Cap   int    `json:"cap"`
}

func (c chainRsp) percent() float64 {
	return float64(c.Level) / float64(c.Cap)
}

func (m *Monitor) listChains(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := chainsParseParams(r)
	if err != nil {
		http.Error(w, "Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	m.writeJSON(w, m.sortAndSelectChains(sortMethod, limit, offset))
}

func chainsParseParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "seq"
	}

	if sortMethod != "seq" && sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s. Allowed values are `seq`, `level` "+
				"and `percent`", sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return "", 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return "", 0, 0, err
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, key string) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	if n < 0 {
		return 0, fmt.Errorf("invalid %s: %d is negative", key, n)
	}

	return n, nil
}

// sortAndSelectChains lists the chains of all queues. A zero limit selects
// every chain after offset.
func (m *Monitor) sortAndSelectChains(
	sortMethod string,
	limit, offset int,
) []chainRsp {
	m.lock.RLock()
	chains := []chainRsp{}
	for _, q := range m.queues {
		for _, c := range q.Snapshot().Chains {
			chains = append(chains, chainRsp{
				Queue: q.Name(),
				Chain: c.Seq,
				Level: c.Len,
				Cap:   c.Capacity,
			})
		}
	}
	m.lock.RUnlock()

	switch sortMethod {
	case "level":
		sort.SliceStable(chains, func(i, j int) bool {
			return chains[i].Level > chains[j].Level
		})
	case "percent":
		sort.SliceStable(chains, func(i, j int) bool {
			return chains[i].percent() > chains[j].percent()
		})
	}

	if offset > len(chains) {
		offset = len(chains)
	}

	end := len(chains)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return chains[offset:end]
}

func (m *Monitor) findQueueOr404(
	w http.ResponseWriter,
	name string,
) *queueing.BufferedQueue {
	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, q := range m.queues {
		if q.Name() == name {
			return q
		}
	}

	http.Error(w, "Queue not found", http.StatusNotFound)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

// collectProfile samples the CPU for one second, or for the duration given
// in the duration query parameter.
func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second
	if str := r.URL.Query().Get("duration"); str != "" {
		d, err := time.ParseDuration(str)
		if err != nil || d <= 0 {
			http.Error(w, "invalid duration "+str, http.StatusBadRequest)
			return
		}

		duration = d
	}

	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	select {
	case <-time.After(duration):
	case <-r.Context().Done():
	}

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("cannot encode response", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(data); err != nil {
		m.logger.Debug("cannot write response", zap.Error(err))
	}
}
