package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshaninfordham/safebiteai/internal/adapter/foodkeeper"
	"github.com/roshaninfordham/safebiteai/internal/adapter/news"
	"github.com/roshaninfordham/safebiteai/internal/adapter/openfda"
	"github.com/roshaninfordham/safebiteai/internal/adapter/openfoodfacts"
	"github.com/roshaninfordham/safebiteai/internal/metrics"
	"github.com/roshaninfordham/safebiteai/internal/policy"
)

type fakeBarcode struct{ calls int }

func (f *fakeBarcode) Lookup(ctx context.Context, barcode string) openfoodfacts.Product {
	f.calls++
	if barcode == "0123456789" {
		return openfoodfacts.Product{Found: true, ProductName: "Romaine Hearts", Categories: "romaine lettuce"}
	}
	return openfoodfacts.Product{Found: false}
}

type fakeRecalls struct{}

func (fakeRecalls) CheckRecalls(ctx context.Context, query string) openfda.RecallResult {
	return openfda.RecallResult{Error: openfda.ErrorCode}
}

type fakeNews struct{}

func (fakeNews) Scan(ctx context.Context, query string) news.Result {
	return news.Result{NewsSummary: "nothing for " + query, Sources: []news.Source{}}
}

func newBuiltinRouter(t *testing.T, opts ...Option) (*Router, *fakeBarcode) {
	t.Helper()
	barcode := &fakeBarcode{}
	r := NewRouter(opts...)
	require.NoError(t, RegisterBuiltins(r, Providers{
		Barcode:  barcode,
		Recalls:  fakeRecalls{},
		Guidance: foodkeeper.Default(),
		News:     fakeNews{},
	}))
	return r, barcode
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRouter()
	exec := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) { return nil, nil }
	require.NoError(t, r.Register(Tool{Name: "a", Exec: exec}))
	assert.Error(t, r.Register(Tool{Name: "a", Exec: exec}))
	assert.Error(t, r.Register(Tool{Name: "", Exec: exec}))
	assert.Error(t, r.Register(Tool{Name: "b"}))
}

func TestDefinitions(t *testing.T) {
	r, _ := newBuiltinRouter(t)

	defs := r.Definitions()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Function.Name)
		assert.Equal(t, "function", d.Type)
		assert.NotEmpty(t, d.Function.Parameters)
	}
	assert.Equal(t, []string{
		CheckFoodRecalls,
		CheckFoodSafetyNews,
		CheckSustainabilityImpact,
		LookupProductByBarcode,
		LookupStorageGuidance,
	}, names)
}

func TestExecuteBuiltins(t *testing.T) {
	r, _ := newBuiltinRouter(t)
	ctx := context.Background()

	out := r.Execute(ctx, LookupProductByBarcode, json.RawMessage(`{"barcode":"0123456789"}`))
	assert.JSONEq(t, `{"found":true,"product_name":"Romaine Hearts","categories":"romaine lettuce"}`, string(out))

	out = r.Execute(ctx, CheckSustainabilityImpact, json.RawMessage(`{"category":"beef"}`))
	assert.JSONEq(t, `{"score":25,"flag":"High impact"}`, string(out))

	out = r.Execute(ctx, LookupStorageGuidance, json.RawMessage(`{"name":"xylophone"}`))
	assert.JSONEq(t, `{"found":false}`, string(out))

	out = r.Execute(ctx, LookupStorageGuidance, json.RawMessage(`{"name":"broccoli florets"}`))
	var guidance map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &guidance))
	assert.Equal(t, true, guidance["found"])
	assert.Equal(t, "Broccoli", guidance["name"])

	out = r.Execute(ctx, CheckFoodSafetyNews, json.RawMessage(`{"query":"oysters"}`))
	assert.JSONEq(t, `{"news_summary":"nothing for oysters","sources":[]}`, string(out))
}

func TestExecuteAdapterErrorIsResult(t *testing.T) {
	r, _ := newBuiltinRouter(t)
	out := r.Execute(context.Background(), CheckFoodRecalls, json.RawMessage(`{"product_name":"romaine"}`))
	assert.Equal(t, openfda.ErrorCode, ErrorOf(out))
}

func TestExecuteUnknownTool(t *testing.T) {
	m := metrics.New(nil)
	r, _ := newBuiltinRouter(t, WithMetrics(m))

	out := r.Execute(context.Background(), "launch_rockets", nil)
	assert.Equal(t, "unknown tool: launch_rockets", ErrorOf(out))
	count, err := testutil.GatherAndCount(m.Registry(), "safebite_tool_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExecuteInvalidArguments(t *testing.T) {
	r, barcode := newBuiltinRouter(t)
	ctx := context.Background()

	out := r.Execute(ctx, LookupProductByBarcode, json.RawMessage(`not json`))
	assert.Contains(t, ErrorOf(out), "invalid arguments")

	out = r.Execute(ctx, LookupProductByBarcode, json.RawMessage(`{"barcode":12345678}`))
	assert.Contains(t, ErrorOf(out), "invalid arguments")

	out = r.Execute(ctx, CheckFoodRecalls, json.RawMessage(`{}`))
	assert.Equal(t, "invalid arguments: product_name is required", ErrorOf(out))
	assert.Equal(t, 0, barcode.calls)
}

func TestExecutePolicyBlock(t *testing.T) {
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	r, barcode := newBuiltinRouter(t, WithGuard(engine))

	out := r.Execute(context.Background(), LookupProductByBarcode, json.RawMessage(`{"barcode":"12"}`))
	assert.Equal(t, "blocked: barcode must be 8 to 14 digits", ErrorOf(out))
	assert.Equal(t, 0, barcode.calls)

	out = r.Execute(context.Background(), LookupProductByBarcode, json.RawMessage(`{"barcode":"0123456789"}`))
	assert.Empty(t, ErrorOf(out))
	assert.Equal(t, 1, barcode.calls)
}

type failingGuard struct{}

func (failingGuard) Evaluate(ctx context.Context, input policy.Input) (policy.Decision, error) {
	return policy.Decision{}, errors.New("opa down")
}

func TestExecutePolicyFailureBlocks(t *testing.T) {
	r, _ := newBuiltinRouter(t, WithGuard(failingGuard{}))
	out := r.Execute(context.Background(), CheckSustainabilityImpact, json.RawMessage(`{"category":"beef"}`))
	assert.Equal(t, "blocked: policy evaluation failed", ErrorOf(out))
}

func TestExecuteRecoversPanics(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Register(Tool{Name: "boom", Exec: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		panic("kaboom")
	}}))

	out := r.Execute(context.Background(), "boom", nil)
	assert.Contains(t, ErrorOf(out), "kaboom")
}

func TestExecuteExecutorError(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Register(Tool{Name: "flaky", Exec: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("provider unavailable")
	}}))

	out := r.Execute(context.Background(), "flaky", json.RawMessage(`{}`))
	assert.JSONEq(t, `{"error":"provider unavailable"}`, string(out))
}
