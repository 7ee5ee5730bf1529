package invoke_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songsmith/internal/usecase/invoke"
)

type stubResolver struct {
	credentials map[string]invoke.Credential
}

func (r *stubResolver) Resolve(provider string) (invoke.Credential, error) {
	cred, ok := r.credentials[provider]
	if !ok {
		return invoke.Credential{}, invoke.ErrNoCredential
	}
	return cred, nil
}

type stubAdapter struct {
	resp *invoke.Response
	err  error

	mu    sync.Mutex
	calls int
}

func (a *stubAdapter) Invoke(_ context.Context, _ invoke.ProviderConfig, _ *invoke.Request) (*invoke.Response, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return a.resp, nil
}

func (a *stubAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type recordingSink struct {
	mu      sync.Mutex
	records []invoke.UsageRecord
}

func (s *recordingSink) Record(_ context.Context, rec invoke.UsageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordingSink) all() []invoke.UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]invoke.UsageRecord(nil), s.records...)
}

func testTiers() invoke.Tiers {
	return invoke.Tiers{
		"balanced": {
			Providers: []string{"p1", "p2", "p3", "p4", "p5"},
			Models: map[string]string{
				"p1": "m1", "p2": "m2", "p3": "m3", "p4": "m4", "p5": "m5",
			},
		},
	}
}

func allCredentials(providers ...string) map[string]invoke.Credential {
	creds := make(map[string]invoke.Credential, len(providers))
	for _, p := range providers {
		creds[p] = invoke.Credential{APIKey: "key-" + p}
	}
	return creds
}

func simpleRequest() *invoke.Request {
	return &invoke.Request{Messages: []invoke.Message{{Role: invoke.RoleUser, Content: "write a chorus"}}}
}

func TestGateway_FirstSuccessWins(t *testing.T) {
	resp := &invoke.Response{ID: "r1", Model: "m1", Choices: []invoke.Choice{
		{Message: invoke.Message{Role: invoke.RoleAssistant, Content: "done"}, FinishReason: "stop"},
	}}
	adapters := map[string]invoke.ProviderAdapter{
		"p1": &stubAdapter{resp: resp},
		"p2": &stubAdapter{resp: &invoke.Response{ID: "r2"}},
	}
	gw := invoke.NewGateway(testTiers(), &stubResolver{allCredentials("p1", "p2", "p3", "p4", "p5")}, adapters, nil)

	got, err := gw.Invoke(context.Background(), simpleRequest(), "balanced")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, "done", got.Text())
	// No provider after the first success is attempted.
	assert.Equal(t, 0, adapters["p2"].(*stubAdapter).callCount())
}

func TestGateway_FallsThroughFailuresToFirstSuccess(t *testing.T) {
	adapters := map[string]invoke.ProviderAdapter{
		"p1": &stubAdapter{err: errors.New("boom")},
		"p2": &stubAdapter{err: errors.New("boom")},
		"p3": &stubAdapter{resp: &invoke.Response{ID: "r3", Model: "m3"}},
		"p4": &stubAdapter{resp: &invoke.Response{ID: "r4"}},
	}
	gw := invoke.NewGateway(testTiers(), &stubResolver{allCredentials("p1", "p2", "p3", "p4", "p5")}, adapters, nil)

	got, err := gw.Invoke(context.Background(), simpleRequest(), "balanced")
	require.NoError(t, err)
	assert.Equal(t, "r3", got.ID)
	assert.Equal(t, 1, adapters["p1"].(*stubAdapter).callCount())
	assert.Equal(t, 1, adapters["p2"].(*stubAdapter).callCount())
	assert.Equal(t, 0, adapters["p4"].(*stubAdapter).callCount())
}

func TestGateway_TrialOrderIsDeterministic(t *testing.T) {
	var mu sync.Mutex
	var order []string
	adapters := make(map[string]invoke.ProviderAdapter)
	for _, name := range []string{"p1", "p2", "p3", "p4", "p5"} {
		name := name
		adapters[name] = adapterFunc(func(context.Context, invoke.ProviderConfig, *invoke.Request) (*invoke.Response, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil, errors.New("fail")
		})
	}
	gw := invoke.NewGateway(testTiers(), &stubResolver{allCredentials("p1", "p2", "p3", "p4", "p5")}, adapters, nil)

	for run := 0; run < 3; run++ {
		mu.Lock()
		order = order[:0]
		mu.Unlock()

		_, err := gw.Invoke(context.Background(), simpleRequest(), "balanced")
		require.Error(t, err)

		mu.Lock()
		assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, order)
		mu.Unlock()
	}
}

type adapterFunc func(context.Context, invoke.ProviderConfig, *invoke.Request) (*invoke.Response, error)

func (f adapterFunc) Invoke(ctx context.Context, cfg invoke.ProviderConfig, req *invoke.Request) (*invoke.Response, error) {
	return f(ctx, cfg, req)
}

func TestGateway_AggregateErrorListsEveryProviderInOrder(t *testing.T) {
	adapters := map[string]invoke.ProviderAdapter{
		"p2": &stubAdapter{err: &invoke.ProviderError{Provider: "p2", StatusCode: 500, Detail: "server error"}},
		"p3": &stubAdapter{err: &invoke.ProviderError{Provider: "p3", StatusCode: 429, Detail: "rate limited"}},
	}
	// p1, p4, p5 have no credentials: skipped but still listed.
	gw := invoke.NewGateway(testTiers(), &stubResolver{allCredentials("p2", "p3")}, adapters, nil)

	_, err := gw.Invoke(context.Background(), simpleRequest(), "balanced")
	require.Error(t, err)

	var agg *invoke.AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, "balanced", agg.Tier)
	require.Len(t, agg.Attempts, 5)
	for i, want := range []string{"p1", "p2", "p3", "p4", "p5"} {
		assert.Equal(t, want, agg.Attempts[i].Provider)
	}
	assert.ErrorIs(t, agg.Attempts[0].Err, invoke.ErrNoCredential)
	assert.Contains(t, agg.Error(), "HTTP 500")
	assert.Contains(t, agg.Error(), "rate limited")
}

func TestGateway_MissingAdapterIsNotACredentialError(t *testing.T) {
	// p1 resolves a credential but no adapter is registered for it. The
	// aggregate must name the wiring gap, not a missing key.
	gw := invoke.NewGateway(testTiers(), &stubResolver{allCredentials("p1")}, map[string]invoke.ProviderAdapter{}, nil)

	_, err := gw.Invoke(context.Background(), simpleRequest(), "balanced")
	require.Error(t, err)

	var agg *invoke.AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Attempts, 5)
	assert.ErrorIs(t, agg.Attempts[0].Err, invoke.ErrNoAdapter)
	assert.NotErrorIs(t, agg.Attempts[0].Err, invoke.ErrNoCredential)
	assert.ErrorIs(t, agg.Attempts[1].Err, invoke.ErrNoCredential)
	assert.Contains(t, agg.Error(), "no adapter registered")
}

// Concrete scenario from the design review: p1 unconfigured, p2 returns a 500,
// p3 succeeds with usage {100, 50, 150}. The sink must see exactly two
// records: one failed (p2) and one successful (p3).
func TestGateway_TelemetryRecordsPerAttempt(t *testing.T) {
	sink := &recordingSink{}
	adapters := map[string]invoke.ProviderAdapter{
		"p2": &stubAdapter{err: &invoke.ProviderError{Provider: "p2", StatusCode: 500, Detail: "internal"}},
		"p3": &stubAdapter{resp: &invoke.Response{
			ID:    "r3",
			Model: "m3",
			Choices: []invoke.Choice{
				{Message: invoke.Message{Role: invoke.RoleAssistant, Content: "ok"}, FinishReason: "stop"},
			},
			Usage: invoke.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		}},
	}
	gw := invoke.NewGateway(testTiers(), &stubResolver{allCredentials("p2", "p3")}, adapters, sink)

	got, err := gw.Invoke(context.Background(), simpleRequest(), "balanced")
	require.NoError(t, err)
	assert.Equal(t, "r3", got.ID)

	records := sink.all()
	require.Len(t, records, 2)

	assert.Equal(t, "p2", records[0].Provider)
	assert.False(t, records[0].Success)
	assert.Zero(t, records[0].TotalTokens)

	assert.Equal(t, "p3", records[1].Provider)
	assert.True(t, records[1].Success)
	assert.Equal(t, 100, records[1].PromptTokens)
	assert.Equal(t, 50, records[1].CompletionTokens)
	assert.Equal(t, 150, records[1].TotalTokens)
}

func TestGateway_PanickingSinkDoesNotFailInvocation(t *testing.T) {
	adapters := map[string]invoke.ProviderAdapter{
		"p1": &stubAdapter{resp: &invoke.Response{ID: "r1"}},
	}
	gw := invoke.NewGateway(testTiers(), &stubResolver{allCredentials("p1")}, adapters, panicSink{})

	got, err := gw.Invoke(context.Background(), simpleRequest(), "balanced")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}

type panicSink struct{}

func (panicSink) Record(context.Context, invoke.UsageRecord) { panic("sink down") }

func TestGateway_UnknownTier(t *testing.T) {
	gw := invoke.NewGateway(testTiers(), &stubResolver{}, nil, nil)
	_, err := gw.Invoke(context.Background(), simpleRequest(), "turbo")
	assert.ErrorIs(t, err, invoke.ErrUnknownTier)
}

func TestGateway_EmptyTierNameUsesDefault(t *testing.T) {
	tiers := invoke.Tiers{
		invoke.DefaultTier: {
			Providers: []string{"p1"},
			Models:    map[string]string{"p1": "m1"},
		},
	}
	adapters := map[string]invoke.ProviderAdapter{
		"p1": &stubAdapter{resp: &invoke.Response{ID: "r1"}},
	}
	gw := invoke.NewGateway(tiers, &stubResolver{allCredentials("p1")}, adapters, nil)

	got, err := gw.Invoke(context.Background(), simpleRequest(), "")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}
