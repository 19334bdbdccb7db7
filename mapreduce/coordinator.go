package mapreduce

import (
	"net"
	"net/http"
	"net/rpc"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Coordinator dispatches map and reduce tasks to workers over RPC and
// re-dispatches any task whose worker goes quiet for longer than
// taskWaitMs. All mutable scheduling state lives behind mu, which is never
// held across RPC I/O or the timeout wait — only around the bookkeeping
// mutations themselves.
type Coordinator struct {
	files   []string
	nMap    int
	nReduce int

	taskWaitMs time.Duration

	mu        sync.Mutex
	phase     Phase
	nextToken int64
	todo      []Task
	curr      map[int64]int
	done      map[int]bool
	stats     Stats

	stopped      atomic.Bool
	listener     net.Listener
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewCoordinator builds a Coordinator for the given input files. By
// default nReduce equals len(files); pass WithNReduce to override.
func NewCoordinator(files []string, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		files:      files,
		nMap:       len(files),
		nReduce:    len(files),
		taskWaitMs: defaultTaskWait,
	}
	c.stopped.Store(true)
	for _, opt := range opts {
		opt(c)
	}
	if c.nReduce <= 0 {
		c.nReduce = c.nMap
	}
	return c
}

// Stats returns a snapshot of the run counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Snapshot()
}

// Addr returns the coordinator's bound listen address. Only valid after Start.
func (c *Coordinator) Addr() string {
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

// Start binds host, registers the RPC surface, and begins serving in the
// background; it returns once the listener is bound. Start is idempotent:
// calling it while already running is a no-op. Each successful Start is a
// fresh run — all scheduling state is reset and the MAP phase begins anew,
// which is what makes stop()-then-start() restart cleanly (scenario S5).
func (c *Coordinator) Start(host string) error {
	if !c.stopped.CompareAndSwap(true, false) {
		return nil
	}

	c.mu.Lock()
	c.nextToken = 0
	c.todo = nil
	c.curr = make(map[int64]int)
	c.done = make(map[int]bool)
	c.stats = Stats{}
	c.shutdownCh = make(chan struct{})
	c.shutdownOnce = sync.Once{}
	c.prepareMap()
	c.mu.Unlock()

	ln, err := net.Listen("tcp", host)
	if err != nil {
		c.stopped.Store(true)
		return errors.Wrapf(err, "coordinator: listen on %s", host)
	}
	c.listener = ln

	server := rpc.NewServer()
	if err := server.RegisterName("Coordinator", c); err != nil {
		c.stopped.Store(true)
		return errors.Wrap(err, "coordinator: register RPC receiver")
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, server)

	logrus.WithFields(logrus.Fields{
		"addr":     ln.Addr().String(),
		"n_map":    c.nMap,
		"n_reduce": c.nReduce,
	}).Info("coordinator started")

	go func() {
		_ = http.Serve(ln, mux)
	}()
	return nil
}

// Wait blocks until the coordinator has fully shut down, i.e. the grace
// period after the DONE phase has elapsed and the listener has closed.
func (c *Coordinator) Wait() {
	<-c.shutdownCh
}

// Stop idempotently closes the listener and releases the RPC surface.
func (c *Coordinator) Stop() {
	if !c.stopped.CompareAndSwap(false, true) {
		return
	}
	if c.listener != nil {
		_ = c.listener.Close()
	}
	c.shutdownOnce.Do(func() { close(c.shutdownCh) })
	logrus.Info("coordinator stopped")
}

// buildTask reconstructs the deterministic task description for a logical
// id in the given phase; map and reduce tasks carry no per-attempt state
// beyond their token, so this never needs to consult curr/done.
func (c *Coordinator) buildTask(phase Phase, id int) Task {
	if phase == PhaseMap {
		return Task{Kind: KindMap, MapID: id, NReduce: c.nReduce, Fname: c.files[id]}
	}
	return Task{Kind: KindReduce, ReduceID: id, NMap: c.nMap}
}

// prepareMap, prepareReduce and prepareDone assume mu is held. Each asserts
// the invariant that todo and curr are empty; prepareMap and prepareReduce
// then reset done and enqueue the next phase's work with fresh tokens
// (invariant I1: at any instant |todo|+|curr|+|done| == N for the current
// phase), while prepareDone enters DONE and schedules Stop.
func (c *Coordinator) prepareMap() {
	if len(c.todo) != 0 || len(c.curr) != 0 {
		c.fatalLocked(errors.New("prepareMap: todo/curr not empty"))
		return
	}
	c.done = make(map[int]bool)
	for i := 0; i < c.nMap; i++ {
		t := c.buildTask(PhaseMap, i)
		t.Token = c.nextToken
		c.nextToken++
		c.todo = append(c.todo, t)
	}
	c.phase = PhaseMap
	logrus.WithField("n_map", c.nMap).Info("entering MAP phase")
}

func (c *Coordinator) prepareReduce() {
	if len(c.todo) != 0 || len(c.curr) != 0 {
		c.fatalLocked(errors.New("prepareReduce: todo/curr not empty"))
		return
	}
	c.done = make(map[int]bool)
	for i := 0; i < c.nReduce; i++ {
		t := c.buildTask(PhaseReduce, i)
		t.Token = c.nextToken
		c.nextToken++
		c.todo = append(c.todo, t)
	}
	c.phase = PhaseReduce
	logrus.WithField("n_reduce", c.nReduce).Info("entering REDUCE phase")
}

func (c *Coordinator) prepareDone() {
	if len(c.todo) != 0 || len(c.curr) != 0 {
		c.fatalLocked(errors.New("prepareDone: todo/curr not empty"))
		return
	}
	c.phase = PhaseDone
	logrus.Info("entering DONE phase, shutting down after grace period")

	grace := c.taskWaitMs
	go func() {
		time.Sleep(grace)
		c.Stop()
	}()
}

// fatalLocked logs and aborts the process; it is reserved for scheduling
// invariant violations that indicate a bug in the coordinator itself, never
// for worker or network misbehavior (those are handled, not fatal).
func (c *Coordinator) fatalLocked(err error) {
	logrus.WithError(err).Fatal("coordinator invariant violated")
}

// RequestTask is the RPC a worker calls to obtain its next unit of work.
func (c *Coordinator) RequestTask(_ *Empty, reply *TaskResponse) error {
	c.mu.Lock()
	if c.phase == PhaseDone {
		c.mu.Unlock()
		reply.State = StateDone
		return nil
	}
	if len(c.todo) == 0 {
		c.mu.Unlock()
		reply.State = StateWait
		return nil
	}

	task := c.todo[0]
	c.todo = c.todo[1:]
	id := task.logicalID()
	c.curr[task.Token] = id
	c.stats.Dispatches++
	phase := c.phase
	c.mu.Unlock()

	*reply = task.toResponse()

	// The fault-tolerance primitive: wait taskWaitMs from this dispatch (the
	// timer starts just before the reply is returned), then re-queue the task
	// under a fresh token if it still hasn't been marked done. Runs without
	// the lock held so RPC traffic for other workers is never blocked on this
	// timer.
	go c.awaitCompletion(task.Token, id, phase)
	return nil
}

func (c *Coordinator) awaitCompletion(token int64, id int, phase Phase) {
	time.Sleep(c.taskWaitMs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != phase {
		return
	}
	if c.done[id] {
		return
	}
	if _, stillDispatched := c.curr[token]; !stillDispatched {
		return
	}

	delete(c.curr, token)
	next := c.buildTask(phase, id)
	next.Token = c.nextToken
	c.nextToken++
	c.todo = append(c.todo, next)
	c.stats.Timeouts++

	logrus.WithFields(logrus.Fields{
		"phase":     phase,
		"id":        id,
		"old_token": token,
		"new_token": next.Token,
	}).Warn("task timed out, re-queued under a fresh token")
}

// NotifyDone is the RPC a worker calls to report a completed task.
func (c *Coordinator) NotifyDone(args *NotifyInfo, _ *Empty) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseDone {
		return nil
	}

	id, ok := c.curr[args.Token]
	if !ok {
		// Expected for a task that already timed out and was re-dispatched
		// under a new token: this report is stale, not an error.
		c.stats.LateNotifications++
		logrus.WithField("token", args.Token).Warn("ignoring stale task completion")
		return nil
	}

	delete(c.curr, args.Token)
	c.done[id] = true

	if len(c.todo) != 0 || len(c.curr) != 0 {
		return nil
	}

	switch c.phase {
	case PhaseMap:
		if len(c.done) == c.nMap {
			c.prepareReduce()
		} else {
			c.fatalLocked(errors.New("map phase drained without completing all map tasks"))
		}
	case PhaseReduce:
		if len(c.done) == c.nReduce {
			c.prepareDone()
		} else {
			c.fatalLocked(errors.New("reduce phase drained without completing all reduce tasks"))
		}
	}
	return nil
}
