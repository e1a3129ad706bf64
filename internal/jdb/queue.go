package jdb

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
)

// Response is the parsed answer to one command.
type Response struct {
	// ThreadName is taken from the prompt that ended the response; it may be empty.
	ThreadName string   `json:"thread_name"`
	Lines      []string `json:"lines"`
}

// Command is a single console command owned by the driver's queue from
// submission until it resolves. Besides its text it carries a two-stage
// completion: admission (the command passed its gate and was queued for
// sending) and its terminal Response.
type Command struct {
	ID          string
	Text        string
	Category    Category
	Seq         uint64
	SubmittedAt time.Time

	sentAt      time.Time
	admitted    chan struct{}
	admitOnce   sync.Once
	result      *Future[Response]
	observed    chan struct{}
	observeOnce sync.Once
}

func newCommand(text string, category Category, seq uint64) *Command {
	return &Command{
		ID:          xid.New().String(),
		Text:        text,
		Category:    category,
		Seq:         seq,
		SubmittedAt: time.Now(),
		admitted:    make(chan struct{}),
		result:      newFuture[Response](),
		observed:    make(chan struct{}),
	}
}

// Admitted is closed once the command has passed its admission gate.
func (c *Command) Admitted() <-chan struct{} { return c.admitted }

// Done is closed once the command has a terminal result.
func (c *Command) Done() <-chan struct{} { return c.result.Done() }

// Wait blocks for the command's Response. Returning a result marks the
// response as observed, which releases any notification that was held back
// behind this command.
func (c *Command) Wait(ctx context.Context) (Response, error) {
	resp, err := c.result.Wait(ctx)
	if ctx.Err() != nil && !c.result.Settled() {
		return resp, err
	}
	c.observeOnce.Do(func() { close(c.observed) })
	return resp, err
}

func (c *Command) admit() {
	c.admitOnce.Do(func() { close(c.admitted) })
}

func (c *Command) resolve(resp Response) bool {
	c.admit()
	return c.result.resolve(resp)
}

func (c *Command) reject(err error) bool {
	c.admit()
	return c.result.reject(err)
}

// queue holds commands in three stages: waiting on a gate, admitted and
// pending, and the single executing command.
type queue struct {
	seq       uint64
	waiting   []*Command
	pending   []*Command
	executing *Command
}

func (q *queue) nextSeq() uint64 {
	q.seq++
	return q.seq
}

// admit moves every waiting command whose gate is open into pending,
// preserving submission order.
func (q *queue) admit(open func(Category) bool) {
	kept := q.waiting[:0]
	for _, c := range q.waiting {
		if open(c.Category) {
			c.admit()
			q.pending = append(q.pending, c)
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(q.waiting); i++ {
		q.waiting[i] = nil
	}
	q.waiting = kept
}

// pop removes the head of pending.
func (q *queue) pop() *Command {
	if len(q.pending) == 0 {
		return nil
	}
	c := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return c
}

// drain removes and returns every queued command, executing first.
func (q *queue) drain() []*Command {
	var out []*Command
	if q.executing != nil {
		out = append(out, q.executing)
		q.executing = nil
	}
	out = append(out, q.pending...)
	out = append(out, q.waiting...)
	q.pending = nil
	q.waiting = nil
	return out
}
