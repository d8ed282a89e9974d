package start

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Julianrussmeyer/flower/pkg/protocol"
	"github.com/Julianrussmeyer/flower/pkg/protocol/codec"
	"github.com/Julianrussmeyer/flower/pkg/serde"
	"github.com/Julianrussmeyer/flower/pkg/transport"
	"github.com/Julianrussmeyer/flower/pkg/typing"
)

// pullStep scripts one PullTask outcome.
type pullStep struct {
	env *protocol.Envelope
	err error
}

// fakeConn is an in-memory transport.Connection with scripted behavior.
// When the pull script is exhausted it cancels the loop's context, which is
// the orderly-shutdown path.
type fakeConn struct {
	mu sync.Mutex

	cancel      context.CancelFunc
	pulls       []pullStep
	pullIdx     int
	connectErrs []error // consumed per Connect call; nil entry = success
	pushErrs    []error // consumed per PushTaskRes call; nil entry = success

	connects     int
	created      int
	deleted      int
	pushAttempts int
	pushed       []*protocol.Envelope
}

func (f *fakeConn) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		return err
	}
	return nil
}

func (f *fakeConn) CreateNode(ctx context.Context) (transport.NodeID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return 7, nil
}

func (f *fakeConn) PullTask(ctx context.Context, node transport.NodeID) (*protocol.Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pullIdx >= len(f.pulls) {
		f.cancel()
		return nil, ctx.Err()
	}
	step := f.pulls[f.pullIdx]
	f.pullIdx++
	return step.env, step.err
}

func (f *fakeConn) PushTaskRes(ctx context.Context, node transport.NodeID, env *protocol.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushAttempts++
	if len(f.pushErrs) > 0 {
		err := f.pushErrs[0]
		f.pushErrs = f.pushErrs[1:]
		if err != nil {
			return err
		}
	}
	f.pushed = append(f.pushed, env)
	return nil
}

func (f *fakeConn) DeleteNode(ctx context.Context, node transport.NodeID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted++
	return nil
}

func (f *fakeConn) Close() error { return nil }

// fakeClient answers every operation; Fit can be switched to fail.
type fakeClient struct {
	failFit bool
}

func (c fakeClient) GetParameters(_ typing.GetParametersIns) (typing.GetParametersRes, error) {
	return typing.GetParametersRes{
		Status:     typing.Status{Code: typing.CodeOK},
		Parameters: typing.Parameters{Tensors: [][]byte{{1}}},
	}, nil
}

func (c fakeClient) GetProperties(_ typing.GetPropertiesIns) (typing.GetPropertiesRes, error) {
	return typing.GetPropertiesRes{Status: typing.Status{Code: typing.CodeOK}}, nil
}

func (c fakeClient) Fit(_ typing.FitIns) (typing.FitRes, error) {
	if c.failFit {
		return typing.FitRes{}, errors.New("local training blew up")
	}
	return typing.FitRes{Status: typing.Status{Code: typing.CodeOK}, NumExamples: 1}, nil
}

func (c fakeClient) Evaluate(_ typing.EvaluateIns) (typing.EvaluateRes, error) {
	return typing.EvaluateRes{Status: typing.Status{Code: typing.CodeOK}, Loss: 1, NumExamples: 1}, nil
}

func fastOpts() Options {
	return Options{
		PollInterval:   time.Millisecond,
		BackoffInitial: time.Millisecond,
		BackoffMax:     4 * time.Millisecond,
		MaxFailures:    3,
	}
}

func mustTranslator(t *testing.T) *serde.Translator {
	t.Helper()
	tr, err := serde.New()
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	return tr
}

func taskEnvelope(t *testing.T, ins *typing.TaskIns) *protocol.Envelope {
	t.Helper()
	env, err := mustTranslator(t).EncodeTaskIns(ins)
	if err != nil {
		t.Fatalf("encode task: %v", err)
	}
	return env
}

func runLoop(t *testing.T, f *fakeConn, cl fakeClient, opts Options) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.cancel = cancel
	return Run(ctx, f, cl, opts, nil)
}

func TestScenarioGetParameters(t *testing.T) {
	id, _ := typing.NewTaskID()
	ins := &typing.TaskIns{ID: id, Kind: typing.TaskGetParameters, GetParameters: &typing.GetParametersIns{}}
	f := &fakeConn{pulls: []pullStep{{env: taskEnvelope(t, ins)}}}

	if err := runLoop(t, f, fakeClient{}, fastOpts()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.pushed) != 1 {
		t.Fatalf("pushed %d responses, want 1", len(f.pushed))
	}
	res, err := mustTranslator(t).DecodeTaskRes(f.pushed[0])
	if err != nil {
		t.Fatalf("decode pushed response: %v", err)
	}
	if res.ID != id {
		t.Fatalf("response id %s != task id %s", res.ID, id)
	}
	if res.GetParameters == nil || res.GetParameters.Status.Code != typing.CodeOK {
		t.Fatalf("unexpected response: %+v", res)
	}
	got := res.GetParameters.Parameters.Tensors
	if len(got) != 1 || len(got[0]) != 1 || got[0][0] != 1 {
		t.Fatalf("tensors = %v, want [[1]]", got)
	}
}

func TestScenarioFitFailure(t *testing.T) {
	id, _ := typing.NewTaskID()
	ins := &typing.TaskIns{ID: id, Kind: typing.TaskFit, Fit: &typing.FitIns{}}
	f := &fakeConn{pulls: []pullStep{{env: taskEnvelope(t, ins)}}}

	if err := runLoop(t, f, fakeClient{failFit: true}, fastOpts()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.pushed) != 1 {
		t.Fatalf("pushed %d responses, want 1", len(f.pushed))
	}
	res, err := mustTranslator(t).DecodeTaskRes(f.pushed[0])
	if err != nil {
		t.Fatalf("decode pushed response: %v", err)
	}
	if res.ID != id {
		t.Fatalf("response id %s != task id %s", res.ID, id)
	}
	if res.Failure == nil || res.Failure.Code != typing.CodeError {
		t.Fatalf("expected error status, got %+v", res)
	}
	if res.Failure.Message == "" {
		t.Fatalf("failure message is empty")
	}
}

func TestScenarioIdlePolling(t *testing.T) {
	f := &fakeConn{pulls: []pullStep{{}, {}, {}}} // three empty polls

	if err := runLoop(t, f, fakeClient{}, fastOpts()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.pushed) != 0 || f.pushAttempts != 0 {
		t.Fatalf("idle polling must not push (pushed %d)", f.pushAttempts)
	}
	if f.connects != 1 {
		t.Fatalf("idle polling must stay connected (connects = %d)", f.connects)
	}
}

func TestScenarioReconnectResumes(t *testing.T) {
	id, _ := typing.NewTaskID()
	ins := &typing.TaskIns{ID: id, Kind: typing.TaskEvaluate, Evaluate: &typing.EvaluateIns{}}
	f := &fakeConn{
		pulls: []pullStep{
			{err: &transport.Error{Op: "pull_task", Err: errors.New("stream closed")}},
			{env: taskEnvelope(t, ins)},
		},
		// initial connect succeeds, first reconnect fails, second succeeds
		connectErrs: []error{nil, errors.New("refused"), nil},
	}

	if err := runLoop(t, f, fakeClient{}, fastOpts()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if f.connects != 3 {
		t.Fatalf("connects = %d, want 3 (initial + failed retry + success)", f.connects)
	}
	if len(f.pushed) != 1 {
		t.Fatalf("loop did not resume pulling after reconnect (pushed %d)", len(f.pushed))
	}
}

func TestFatalAfterRetryLimit(t *testing.T) {
	f := &fakeConn{
		pulls:       []pullStep{{err: errors.New("stream closed")}},
		connectErrs: []error{nil, errors.New("down"), errors.New("down"), errors.New("down")},
	}

	err := runLoop(t, f, fakeClient{}, fastOpts())
	if err == nil {
		t.Fatalf("expected fatal error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "giving up") {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.connects != 4 { // initial + MaxFailures attempts
		t.Fatalf("connects = %d, want 4", f.connects)
	}
	if f.deleted != 1 {
		t.Fatalf("delete_node attempted %d times, want 1", f.deleted)
	}
}

// torndownConn mimics the streaming variant after cancellation: the session
// that PullTask was blocked on is gone, so DeleteNode fails with ErrClosed
// until Connect opens a fresh one.
type torndownConn struct {
	mu sync.Mutex

	cancel   context.CancelFunc
	open     bool
	connects int
	refused  int
	deleted  int
}

func (f *torndownConn) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	f.connects++
	return nil
}

func (f *torndownConn) CreateNode(ctx context.Context) (transport.NodeID, error) {
	return 5, nil
}

func (f *torndownConn) PullTask(ctx context.Context, node transport.NodeID) (*protocol.Envelope, error) {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
	f.cancel()
	return nil, ctx.Err()
}

func (f *torndownConn) PushTaskRes(ctx context.Context, node transport.NodeID, env *protocol.Envelope) error {
	return nil
}

func (f *torndownConn) DeleteNode(ctx context.Context, node transport.NodeID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		f.refused++
		return transport.Errf("delete_node", "", transport.ErrClosed)
	}
	f.deleted++
	return nil
}

func (f *torndownConn) Close() error { return nil }

func TestDrainReopensTornDownSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := &torndownConn{cancel: cancel}

	if err := Run(ctx, f, fakeClient{}, fastOpts(), nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if f.refused != 1 {
		t.Fatalf("delete_node refused %d times on the dead session, want 1", f.refused)
	}
	if f.deleted != 1 {
		t.Fatalf("unregistration delivered %d times, want 1", f.deleted)
	}
	if f.connects != 2 {
		t.Fatalf("connects = %d, want 2 (initial + drain reopen)", f.connects)
	}
}

func TestLifecyclePairing(t *testing.T) {
	f := &fakeConn{}
	if err := runLoop(t, f, fakeClient{}, fastOpts()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if f.created != 1 || f.deleted != 1 {
		t.Fatalf("create/delete = %d/%d, want 1/1", f.created, f.deleted)
	}
}

func TestPushRetriedAfterReconnect(t *testing.T) {
	id, _ := typing.NewTaskID()
	ins := &typing.TaskIns{ID: id, Kind: typing.TaskGetProperties, GetProperties: &typing.GetPropertiesIns{}}
	f := &fakeConn{
		pulls:    []pullStep{{env: taskEnvelope(t, ins)}},
		pushErrs: []error{errors.New("broken pipe")},
	}

	if err := runLoop(t, f, fakeClient{}, fastOpts()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if f.pushAttempts != 2 || len(f.pushed) != 1 {
		t.Fatalf("push attempts/delivered = %d/%d, want 2/1", f.pushAttempts, len(f.pushed))
	}
}

func TestUndecodableTaskStillAnswered(t *testing.T) {
	reg := codec.NewRegistry()
	c, err := codec.CBOR()
	if err != nil {
		t.Fatalf("cbor: %v", err)
	}
	reg.Register(c)
	id, _ := typing.NewTaskID()
	h := protocol.Header{Version: protocol.Version, Type: protocol.MsgTaskIns, TaskID: id}
	env, err := protocol.NewEnvelopeWithBody(h, protocol.FormatCBOR, &protocol.TaskInsBody{}, reg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	f := &fakeConn{pulls: []pullStep{{env: env}}}

	if err := runLoop(t, f, fakeClient{}, fastOpts()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(f.pushed) != 1 {
		t.Fatalf("pushed %d responses, want 1", len(f.pushed))
	}
	res, err := mustTranslator(t).DecodeTaskRes(f.pushed[0])
	if err != nil {
		t.Fatalf("decode pushed response: %v", err)
	}
	if res.ID != id || res.Failure == nil {
		t.Fatalf("expected error reply carrying task identity, got %+v", res)
	}
}

func TestGrowMonotonicAndCapped(t *testing.T) {
	const max = 30 * time.Second
	d := 500 * time.Millisecond
	prev := d
	for i := 0; i < 16; i++ {
		d = grow(d, max)
		if d < prev {
			t.Fatalf("delay decreased: %v -> %v", prev, d)
		}
		if d > max {
			t.Fatalf("delay %v exceeds cap %v", d, max)
		}
		prev = d
	}
	if d != max {
		t.Fatalf("delay did not reach cap: %v", d)
	}
}

func TestWithJitterBounds(t *testing.T) {
	base := 10 * time.Millisecond
	for i := 0; i < 32; i++ {
		d := withJitter(base, 5*time.Millisecond)
		if d < base || d >= base+5*time.Millisecond {
			t.Fatalf("jittered delay %v out of range", d)
		}
	}
	if withJitter(base, 0) != base {
		t.Fatalf("zero jitter must not alter the delay")
	}
}
