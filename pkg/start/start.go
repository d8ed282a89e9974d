// Package start runs the client task loop against a coordinator: register,
// pull, dispatch, push, reconnect with backoff, and unregister on shutdown.
package start

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Julianrussmeyer/flower/pkg/client"
	"github.com/Julianrussmeyer/flower/pkg/protocol"
	"github.com/Julianrussmeyer/flower/pkg/serde"
	"github.com/Julianrussmeyer/flower/pkg/transport"
	"github.com/Julianrussmeyer/flower/pkg/typing"
)

const drainTimeout = 5 * time.Second

// Options bound the loop's retry behavior. Zero fields take defaults.
type Options struct {
	// PollInterval is the idle wait after an empty poll (rere variant).
	PollInterval time.Duration
	// BackoffInitial..BackoffMax bound the reconnect delay; BackoffJitter is
	// added on top of each delay.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	BackoffJitter  time.Duration
	// MaxFailures is the number of consecutive reconnect attempts before the
	// loop terminates fatally.
	MaxFailures int
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = 5
	}
	return o
}

// state tracks the loop's position in its lifecycle, for observability only.
type state uint8

const (
	stateDisconnected state = iota
	stateConnecting
	stateRegistered
	stateRunning
	stateBackoff
	stateDraining
)

func (s state) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateRegistered:
		return "registered"
	case stateRunning:
		return "running"
	case stateBackoff:
		return "backoff"
	case stateDraining:
		return "draining"
	default:
		return "disconnected"
	}
}

type loop struct {
	conn transport.Connection
	cl   client.Client
	tr   *serde.Translator
	opts Options
	log  *zap.Logger
}

func (l *loop) to(s state) { l.log.Debug("state transition", zap.Stringer("state", s)) }

// Run drives the full session: connect, register, pull/dispatch/push until
// ctx is canceled, then unregister. Registration failure and exhausted
// reconnect budgets are fatal and returned; per-task failures are not.
func Run(ctx context.Context, conn transport.Connection, cl client.Client, opts Options, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	tr, err := serde.New()
	if err != nil {
		return err
	}
	l := &loop{conn: conn, cl: cl, tr: tr, opts: opts.withDefaults(), log: log}
	return l.run(ctx)
}

func (l *loop) run(ctx context.Context) error {
	l.to(stateConnecting)
	if err := l.conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer l.conn.Close()

	node, err := l.conn.CreateNode(ctx)
	if err != nil {
		return fmt.Errorf("register node: %w", err)
	}
	l.to(stateRegistered)
	l.log.Info("node registered", zap.Uint64("node", uint64(node)))
	defer l.drain(node)

	l.to(stateRunning)
	// pending holds a result whose push failed; it is retried after a
	// successful reconnect so every pulled task yields exactly one push.
	var pending *protocol.Envelope
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if pending != nil {
			if err := l.conn.PushTaskRes(ctx, node, pending); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				l.log.Warn("push retry failed", zap.Error(err))
				if err := l.backoff(ctx); err != nil {
					return err
				}
				continue
			}
			pending = nil
			continue
		}

		env, err := l.conn.PullTask(ctx, node)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Warn("pull failed", zap.Error(err))
			if err := l.backoff(ctx); err != nil {
				return err
			}
			continue
		}
		if env == nil {
			if !sleep(ctx, l.opts.PollInterval) {
				return nil
			}
			continue
		}

		res := l.handle(env)
		out, err := l.tr.EncodeTaskRes(res)
		if err != nil {
			// cannot happen for replies built by the handler; do not tear the
			// session down over one task
			l.log.Error("encode result", zap.Stringer("task", res.ID), zap.Error(err))
			continue
		}
		if err := l.conn.PushTaskRes(ctx, node, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Warn("push failed, retrying after reconnect", zap.Stringer("task", res.ID), zap.Error(err))
			pending = out
			if err := l.backoff(ctx); err != nil {
				return err
			}
		}
	}
}

// handle decodes and dispatches one task. Decode failures still produce a
// reply because the envelope header keeps the task identity recoverable.
func (l *loop) handle(env *protocol.Envelope) *typing.TaskRes {
	ins, err := l.tr.DecodeTaskIns(env)
	if err != nil {
		l.log.Warn("rejecting undecodable task",
			zap.Stringer("task", env.Header.TaskID), zap.Error(err))
		return &typing.TaskRes{
			ID:      env.Header.TaskID,
			GroupID: env.Header.GroupID,
			Failure: &typing.Status{Code: typing.CodeError, Message: fmt.Sprintf("task rejected: %v", err)},
		}
	}
	l.log.Info("task received", zap.Stringer("task", ins.ID), zap.Stringer("kind", ins.Kind))
	return client.Handle(ins, l.cl)
}

// backoff reconnects with exponentially growing, capped delays. Returns nil
// once reconnected or when ctx was canceled; returns an error after
// MaxFailures consecutive attempts.
func (l *loop) backoff(ctx context.Context) error {
	l.to(stateBackoff)
	delay := l.opts.BackoffInitial
	for attempt := 1; ; attempt++ {
		if attempt > l.opts.MaxFailures {
			return fmt.Errorf("giving up after %d consecutive reconnect failures", l.opts.MaxFailures)
		}
		if !sleep(ctx, withJitter(delay, l.opts.BackoffJitter)) {
			return nil
		}
		_ = l.conn.Close()
		if err := l.conn.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Warn("reconnect failed",
				zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
			delay = grow(delay, l.opts.BackoffMax)
			continue
		}
		l.log.Info("reconnected", zap.Int("attempt", attempt))
		l.to(stateRunning)
		return nil
	}
}

// drain unregisters the node once, best effort, on every exit path.
func (l *loop) drain(node transport.NodeID) {
	l.to(stateDraining)
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	err := l.conn.DeleteNode(ctx, node)
	if errors.Is(err, transport.ErrClosed) {
		// cancellation tears the streaming session down to unblock PullTask;
		// reopen once so the unregistration frame still reaches the server
		if cerr := l.conn.Connect(ctx); cerr == nil {
			err = l.conn.DeleteNode(ctx, node)
		}
	}
	if err != nil {
		l.log.Warn("delete node failed", zap.Uint64("node", uint64(node)), zap.Error(err))
		return
	}
	l.log.Info("node unregistered", zap.Uint64("node", uint64(node)))
	l.to(stateDisconnected)
}

// sleep waits for d or until ctx is canceled; reports whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func grow(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		d = max
	}
	return d
}

func withJitter(d, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return d
	}
	// add random 0..jitter
	n := time.Now().UnixNano()
	return d + time.Duration(n%int64(jitter))
}
