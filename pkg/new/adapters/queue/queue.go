// Package queue provides an ordered execution context for store operations.
//
// Jobs are taken in submission order. Read jobs may run concurrently with other
// read jobs; write jobs run alone. A job submitted after a write always observes
// the effects of that write.
//
// A job may return a follow-up, which runs once the job's lock has been released.
// Follow-ups of write jobs run one at a time in submission order on a goroutine of
// their own, so a slow follow-up never holds back later jobs.
package queue

import (
	"sync"
)

type job struct {
	fn    func() func()
	write bool
}

type OperationQueue struct {
	lock  sync.RWMutex
	reads sync.WaitGroup

	jobsLock sync.Mutex
	jobs     []job
	closed   bool
	notify   chan struct{}
	done     chan struct{}

	followUps *fifo
}

func NewOperationQueue() *OperationQueue {
	q := &OperationQueue{
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		followUps: newFIFO(),
	}
	go q.run()
	return q
}

// Read schedules fn to run concurrently with other reads. It returns false if the
// queue has been closed, in which case fn will never run.
func (q *OperationQueue) Read(fn func() func()) bool {
	return q.submit(job{fn: fn})
}

// Write schedules fn to run with exclusive access. It returns false if the queue
// has been closed, in which case fn will never run.
func (q *OperationQueue) Write(fn func() func()) bool {
	return q.submit(job{fn: fn, write: true})
}

// Close rejects new jobs, waits for already submitted ones and their follow-ups and
// stops the dispatcher. It must not be called from inside a job or a follow-up.
func (q *OperationQueue) Close() {
	q.jobsLock.Lock()
	if q.closed {
		q.jobsLock.Unlock()
		<-q.done
		q.reads.Wait()
		q.followUps.close()
		return
	}
	q.closed = true
	q.jobsLock.Unlock()

	q.wake()
	<-q.done
	q.reads.Wait()
	q.followUps.close()
}

func (q *OperationQueue) submit(j job) bool {
	q.jobsLock.Lock()
	if q.closed {
		q.jobsLock.Unlock()
		return false
	}
	q.jobs = append(q.jobs, j)
	q.jobsLock.Unlock()

	q.wake()
	return true
}

func (q *OperationQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *OperationQueue) next() (job, bool) {
	for {
		q.jobsLock.Lock()
		if len(q.jobs) > 0 {
			j := q.jobs[0]
			q.jobs[0] = job{}
			q.jobs = q.jobs[1:]
			q.jobsLock.Unlock()
			return j, true
		}
		closed := q.closed
		q.jobsLock.Unlock()

		if closed {
			return job{}, false
		}
		<-q.notify
	}
}

func (q *OperationQueue) run() {
	defer close(q.done)

	for {
		j, ok := q.next()
		if !ok {
			return
		}

		if j.write {
			q.lock.Lock()
			then := j.fn()
			q.lock.Unlock()
			if then != nil {
				q.followUps.push(then)
			}
			continue
		}

		q.lock.RLock()
		q.reads.Add(1)
		go func() {
			defer q.reads.Done()
			then := j.fn()
			q.lock.RUnlock()
			if then != nil {
				then()
			}
		}()
	}
}

// fifo runs functions one at a time, in push order, on its own goroutine.
type fifo struct {
	lock   sync.Mutex
	fns    []func()
	closed bool
	notify chan struct{}
	done   chan struct{}
}

func newFIFO() *fifo {
	f := &fifo{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *fifo) push(fn func()) {
	f.lock.Lock()
	f.fns = append(f.fns, fn)
	f.lock.Unlock()
	f.wake()
}

// close waits until every pushed function has run.
func (f *fifo) close() {
	f.lock.Lock()
	f.closed = true
	f.lock.Unlock()
	f.wake()
	<-f.done
}

func (f *fifo) wake() {
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

func (f *fifo) run() {
	defer close(f.done)

	for {
		f.lock.Lock()
		if len(f.fns) > 0 {
			fn := f.fns[0]
			f.fns[0] = nil
			f.fns = f.fns[1:]
			f.lock.Unlock()
			fn()
			continue
		}
		closed := f.closed
		f.lock.Unlock()

		if closed {
			return
		}
		<-f.notify
	}
}
