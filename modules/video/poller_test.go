package video

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maxprompt-server/modules/common/apierr"
)

type fakeOp struct {
	name       string
	done       bool
	failureMsg string
	uri        string
	bytes      []byte
}

func (f *fakeOp) Name() string           { return f.name }
func (f *fakeOp) Done() bool             { return f.done }
func (f *fakeOp) FailureMessage() string { return f.failureMsg }
func (f *fakeOp) ResultURI() string      { return f.uri }
func (f *fakeOp) ResultBytes() []byte    { return f.bytes }

func staticKey(key string) KeyFunc {
	return func() string { return key }
}

// fakeUpstream replays a scripted sequence of poll outcomes and records
// the order of sleeps and polls.
type fakeUpstream struct {
	script  []Operation
	pollErr error
	polls   int
	keys    []string
	events  *[]string
}

func (f *fakeUpstream) Submit(ctx context.Context, apiKey string, req *Request) (Operation, error) {
	return nil, errors.New("not used")
}

func (f *fakeUpstream) Poll(ctx context.Context, apiKey string, op Operation) (Operation, error) {
	f.polls++
	f.keys = append(f.keys, apiKey)
	if f.events != nil {
		*f.events = append(*f.events, "poll")
	}
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if f.polls > len(f.script) {
		panic("poll called beyond script")
	}
	return f.script[f.polls-1], nil
}

func (f *fakeUpstream) Download(ctx context.Context, apiKey, uri string) ([]byte, string, error) {
	return nil, "", errors.New("not used")
}

func newTestPoller(upstream Upstream, sleeps *[]time.Duration, events *[]string) *Poller {
	p := NewPoller(upstream, PollerConfig{})
	p.sleep = func(ctx context.Context, d time.Duration) error {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
		if events != nil {
			*events = append(*events, "sleep")
		}
		return nil
	}
	return p
}

func TestWaitAlreadyDoneSkipsPolling(t *testing.T) {
	upstream := &fakeUpstream{}
	var sleeps []time.Duration
	p := newTestPoller(upstream, &sleeps, nil)

	done := &fakeOp{name: "op-1", done: true, uri: "https://dl/video"}
	got, err := p.Wait(context.Background(), staticKey("sk-key"), done, nil)
	require.NoError(t, err)
	assert.Same(t, Operation(done), got)
	assert.Zero(t, upstream.polls)
	assert.Empty(t, sleeps)
}

func TestWaitPollsUntilDone(t *testing.T) {
	final := &fakeOp{name: "op-1", done: true, uri: "https://dl/video"}
	upstream := &fakeUpstream{script: []Operation{
		&fakeOp{name: "op-1"},
		&fakeOp{name: "op-1"},
		final,
	}}
	var sleeps []time.Duration
	var counts []int
	p := newTestPoller(upstream, &sleeps, nil)

	got, err := p.Wait(context.Background(), staticKey("sk-key"), &fakeOp{name: "op-1"}, func(n int) {
		counts = append(counts, n)
	})
	require.NoError(t, err)
	assert.Same(t, Operation(final), got)
	assert.Equal(t, 3, upstream.polls)
	assert.Equal(t, []int{1, 2, 3}, counts)

	// every wait uses the canonical interval, no backoff
	require.Len(t, sleeps, 3)
	for _, d := range sleeps {
		assert.Equal(t, 10*time.Second, d)
	}
}

func TestWaitAlternatesSleepAndPoll(t *testing.T) {
	var events []string
	upstream := &fakeUpstream{
		script: []Operation{
			&fakeOp{name: "op-1"},
			&fakeOp{name: "op-1", done: true, uri: "https://dl/video"},
		},
		events: &events,
	}
	p := newTestPoller(upstream, nil, &events)

	_, err := p.Wait(context.Background(), staticKey("sk-key"), &fakeOp{name: "op-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sleep", "poll", "sleep", "poll"}, events)
}

func TestWaitRereadsCredentialEachPoll(t *testing.T) {
	upstream := &fakeUpstream{script: []Operation{
		&fakeOp{name: "op-1"},
		&fakeOp{name: "op-1", done: true, uri: "https://dl/video"},
	}}
	current := "key-1"
	p := NewPoller(upstream, PollerConfig{})
	p.sleep = func(ctx context.Context, d time.Duration) error {
		// the user saves a new key while the first poll is pending
		if upstream.polls == 1 {
			current = "key-2"
		}
		return nil
	}

	_, err := p.Wait(context.Background(), func() string { return current }, &fakeOp{name: "op-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"key-1", "key-2"}, upstream.keys)
}

func TestWaitClassifiesTerminalFailure(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		want apierr.Kind
	}{
		{"quota failure", "Quota exceeded for this project", apierr.KindQuota},
		{"auth failure", "PERMISSION_DENIED: key revoked", apierr.KindAuth},
		{"generic failure", "internal error during generation", apierr.KindUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			upstream := &fakeUpstream{script: []Operation{
				&fakeOp{name: "op-1", done: true, failureMsg: tc.msg},
			}}
			p := newTestPoller(upstream, nil, nil)

			_, err := p.Wait(context.Background(), staticKey("sk-key"), &fakeOp{name: "op-1"}, nil)
			require.Error(t, err)
			assert.Equal(t, tc.want, apierr.KindOf(err))
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestWaitClassifiesPollError(t *testing.T) {
	upstream := &fakeUpstream{pollErr: errors.New("dial tcp: connection refused")}
	p := newTestPoller(upstream, nil, nil)

	_, err := p.Wait(context.Background(), staticKey("sk-key"), &fakeOp{name: "op-1"}, nil)
	require.Error(t, err)
	assert.Equal(t, apierr.KindTransport, apierr.KindOf(err))
}

func TestWaitCeiling(t *testing.T) {
	// never finishes
	upstream := &fakeUpstream{}
	p := NewPoller(upstream, PollerConfig{Interval: 10 * time.Second, Ceiling: 30 * time.Second})
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	upstream.script = []Operation{
		&fakeOp{name: "op-1"}, &fakeOp{name: "op-1"}, &fakeOp{name: "op-1"}, &fakeOp{name: "op-1"},
	}

	_, err := p.Wait(context.Background(), staticKey("sk-key"), &fakeOp{name: "op-1"}, nil)
	require.Error(t, err)
	assert.Equal(t, apierr.KindUpstream, apierr.KindOf(err))
	assert.ErrorContains(t, err, "did not finish")
	assert.Equal(t, 3, upstream.polls)
}

func TestWaitCeilingDisabled(t *testing.T) {
	final := &fakeOp{name: "op-1", done: true, uri: "https://dl/video"}
	script := make([]Operation, 0, 250)
	for i := 0; i < 249; i++ {
		script = append(script, &fakeOp{name: "op-1"})
	}
	script = append(script, final)
	upstream := &fakeUpstream{script: script}
	p := NewPoller(upstream, PollerConfig{Ceiling: -1})
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	got, err := p.Wait(context.Background(), staticKey("sk-key"), &fakeOp{name: "op-1"}, nil)
	require.NoError(t, err)
	assert.Same(t, Operation(final), got)
	assert.Equal(t, 250, upstream.polls)
}

func TestWaitContextCancelled(t *testing.T) {
	upstream := &fakeUpstream{}
	p := NewPoller(upstream, PollerConfig{})
	p.sleep = realSleep

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Wait(ctx, staticKey("sk-key"), &fakeOp{name: "op-1"}, nil)
	require.Error(t, err)
	assert.Equal(t, apierr.KindTransport, apierr.KindOf(err))
	assert.Zero(t, upstream.polls)
}
