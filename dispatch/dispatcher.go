package dispatch

import (
	"errors"
	"fmt"
	"sync"

	"cpsys/internal"
	"cpsys/ocpp"
)

const workerQueueSize = 32

// Dispatcher runs one worker goroutine per charge point connection. Messages of
// one connection are processed in receipt order; independent connections run in
// parallel. The first result a processor delivers wins, later deliveries for
// the same envelope are dropped.
type Dispatcher struct {
	registry *Registry
	logger   internal.LogHandler

	mu      sync.Mutex
	workers map[ocpp.ChargePointIdentity]chan job
	closed  bool
	wg      sync.WaitGroup
}

// job is one unit of worker input. A stop job shuts the worker down; the queue
// channel itself is never closed, so a concurrent Dispatch can never hit a
// closed channel.
type job struct {
	env      *ocpp.Envelope
	callback ocpp.ResultCallback
	stop     bool
}

func NewDispatcher(registry *Registry, logger internal.LogHandler) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
		workers:  make(map[ocpp.ChargePointIdentity]chan job),
	}
}

// Dispatch queues one envelope on the worker of its connection, starting the
// worker on first use. Blocks when the connection's queue is full, which keeps
// a flooding charge point from claiming unbounded memory.
func (d *Dispatcher) Dispatch(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return errors.New("dispatcher is closed")
	}
	queue, ok := d.workers[env.Client]
	if !ok {
		queue = make(chan job, workerQueueSize)
		d.workers[env.Client] = queue
		d.wg.Add(1)
		go d.runWorker(queue)
	}
	d.mu.Unlock()
	queue <- job{env: env, callback: callback}
	return nil
}

// Disconnect releases the worker of a closed connection. Queued messages are
// still processed before the worker exits.
func (d *Dispatcher) Disconnect(client ocpp.ChargePointIdentity) {
	d.mu.Lock()
	queue, ok := d.workers[client]
	if ok {
		delete(d.workers, client)
	}
	d.mu.Unlock()
	if ok {
		queue <- job{stop: true}
	}
}

// Close stops all workers and waits until their queues drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	queues := make([]chan job, 0, len(d.workers))
	for client, queue := range d.workers {
		delete(d.workers, client)
		queues = append(queues, queue)
	}
	d.mu.Unlock()
	for _, queue := range queues {
		queue <- job{stop: true}
	}
	d.wg.Wait()
}

func (d *Dispatcher) runWorker(queue chan job) {
	defer d.wg.Done()
	for {
		j := <-queue
		if j.stop {
			return
		}
		d.process(j)
	}
}

func (d *Dispatcher) process(j job) {
	env := j.env
	var once sync.Once
	deliver := func(result ocpp.Response, callErr *ocpp.Error) {
		once.Do(func() {
			j.callback(env, result, callErr)
		})
	}
	processors := d.registry.Processors(env.Action)
	if len(processors) == 0 {
		deliver(nil, ocpp.NewError(ocpp.NotImplemented, fmt.Sprintf("no processor registered for action %s", env.Action.Name)))
		return
	}
	for _, processor := range processors {
		d.invoke(processor, env, deliver)
	}
	deliver(nil, ocpp.NewError(ocpp.GenericError, fmt.Sprintf("action %s produced no result", env.Action.Name)))
}

func (d *Dispatcher) invoke(processor Processor, env *ocpp.Envelope, deliver func(ocpp.Response, *ocpp.Error)) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(fmt.Sprintf("panic processing %s from %s", env.Action.Name, env.Client), fmt.Errorf("%v", r))
			deliver(nil, ocpp.NewError(ocpp.InternalError, fmt.Sprintf("%v", r)))
		}
	}()
	callback := func(_ *ocpp.Envelope, result ocpp.Response, callErr *ocpp.Error) {
		deliver(result, callErr)
	}
	if err := processor.Process(env, callback); err != nil {
		var authErr *ocpp.AuthorizationError
		if errors.As(err, &authErr) {
			// Authorization detail stays on the server side.
			d.logger.Warn(fmt.Sprintf("authorization rejected for %s from %s: %s", env.Action.Name, env.Client, authErr.Status))
			deliver(nil, ocpp.NewError(ocpp.SecurityError, ocpp.SecurityErrorDescription))
			return
		}
		d.logger.Error(fmt.Sprintf("processing %s from %s", env.Action.Name, env.Client), err)
		deliver(nil, ocpp.NewError(ocpp.InternalError, err.Error()))
	}
}
