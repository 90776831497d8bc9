package loom

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/loomwork/loom/schema"
	"golang.org/x/sync/errgroup"
)

func TestOnionOrder(t *testing.T) {
	t.Parallel()
	var log []string
	layer := func(name string) Middleware {
		return func(ctx context.Context, env Env, next Next) (any, error) {
			log = append(log, name+" in")
			out, err := next(ctx, nil)
			log = append(log, name+" out")
			return out, err
		}
	}

	f := Query().
		Use(layer("a")).
		Use(layer("b")).
		Use(layer("c")).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			log = append(log, "handler")
			return nil, nil
		})

	if _, err := mustCall(t, f, nil)(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a in", "b in", "c in", "handler", "c out", "b out", "a out"}
	if !slices.Equal(log, want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
}

func TestEnvMerge(t *testing.T) {
	t.Parallel()
	var outerSaw, innerSaw Env

	f := Query().
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			outerSaw = env
			return next(ctx, Env{"region": "eu", "tier": "outer"})
		}).
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			innerSaw = env
			return next(ctx, Env{"tier": "inner"})
		}).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			return env, nil
		})

	out, err := mustCall(t, f, Env{"host": "h1", "tier": "bound"})(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final := out.(Env)

	// The bound env reaches the outer layer untouched.
	if outerSaw["host"] != "h1" || outerSaw["tier"] != "bound" || len(outerSaw) != 2 {
		t.Fatalf("unexpected outer env: %v", outerSaw)
	}
	// The second layer sees the first layer's patch merged in.
	if innerSaw["region"] != "eu" || innerSaw["tier"] != "outer" {
		t.Fatalf("unexpected inner env: %v", innerSaw)
	}
	// Inner contributions win on conflict; nothing is dropped.
	if final["tier"] != "inner" || final["region"] != "eu" || final["host"] != "h1" {
		t.Fatalf("unexpected handler env: %v", final)
	}
}

func TestEnvLayerIsolation(t *testing.T) {
	t.Parallel()
	var outerAfter Env

	f := Query().
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			out, err := next(ctx, Env{"inner": true})
			outerAfter = env
			return out, err
		}).
		Handler(echoHandler)

	bound := Env{"host": "h1"}
	if _, err := mustCall(t, f, bound)(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The layer's own env is not retroactively extended by inner patches.
	if _, ok := outerAfter["inner"]; ok {
		t.Fatalf("outer env gained an inner patch: %v", outerAfter)
	}
	if _, ok := bound["inner"]; ok {
		t.Fatalf("bound env mutated: %v", bound)
	}
}

func TestShortCircuitSkipsHandlerButNotReturns(t *testing.T) {
	t.Parallel()
	var handlerRuns int32

	f := Query().
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			return map[string]any{"cached": true}, nil
		}).
		Returns(schema.Fields{
			"cached": {Kind: schema.KindBool},
			"source": {Kind: schema.KindString, Default: "gate"},
		}).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			atomic.AddInt32(&handlerRuns, 1)
			return nil, nil
		})

	out, err := mustCall(t, f, nil)(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&handlerRuns) != 0 {
		t.Fatal("handler ran despite short-circuit")
	}
	got := out.(map[string]any)
	if got["cached"] != true || got["source"] != "gate" {
		t.Fatalf("expected validated short-circuit result, got %v", got)
	}
}

func TestShortCircuitResultStillValidated(t *testing.T) {
	t.Parallel()
	f := Query().
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			return map[string]any{"bogus": 1}, nil
		}).
		Returns(schema.Fields{"cached": {Kind: schema.KindBool}}).
		Handler(echoHandler)

	_, err := mustCall(t, f, nil)(context.Background(), nil)
	if _, ok := schema.AsValidationError(err); !ok {
		t.Fatalf("expected *ValidationError for short-circuit result, got %v", err)
	}
}

func TestErrorPropagatesUnmodified(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("store unavailable")
	var observed error

	f := Query().
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			out, err := next(ctx, nil)
			observed = err
			return out, err
		}).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			return nil, sentinel
		})

	_, err := mustCall(t, f, nil)(context.Background(), nil)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if err != sentinel {
		t.Fatalf("error was wrapped: %v", err)
	}
	if observed != sentinel {
		t.Fatalf("outer layer observed %v", observed)
	}
}

func TestReturnsValidatedOncePerInvocation(t *testing.T) {
	t.Parallel()
	counter := &countingValidator{inner: schema.Fields{"ok": {Kind: schema.KindBool}}}

	f := Query().
		Returns(counter).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			return map[string]any{"ok": true}, nil
		})
	call := mustCall(t, f, nil)

	for i := 0; i < 3; i++ {
		if _, err := call(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := counter.calls.Load(); got != 3 {
		t.Fatalf("expected one returns validation per invocation, got %d over 3 calls", got)
	}

	// A failing handler skips returns validation entirely.
	failing := Query().
		Returns(counter).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			return nil, errors.New("boom")
		})
	if _, err := mustCall(t, failing, nil)(context.Background(), nil); err == nil {
		t.Fatal("expected handler error, got nil")
	}
	if got := counter.calls.Load(); got != 3 {
		t.Fatalf("returns validation ran on a failed invocation: %d", got)
	}
}

func TestArgsValidatedOnceBeforeMiddleware(t *testing.T) {
	t.Parallel()
	counter := &countingValidator{inner: schema.Fields{"id": {Kind: schema.KindString}}}
	var middlewareRuns int32

	f := Query().
		Input(counter).
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			atomic.AddInt32(&middlewareRuns, 1)
			return next(ctx, nil)
		}).
		Handler(echoHandler)
	call := mustCall(t, f, nil)

	if _, err := call(context.Background(), Args{"id": "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counter.calls.Load(); got != 1 {
		t.Fatalf("expected 1 validation, got %d", got)
	}

	// A failed validation aborts before any middleware runs.
	middlewareRuns = 0
	if _, err := call(context.Background(), Args{"id": 7}); err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if atomic.LoadInt32(&middlewareRuns) != 0 {
		t.Fatal("middleware ran after failed validation")
	}
	if got := counter.calls.Load(); got != 2 {
		t.Fatalf("expected 2 validations, got %d", got)
	}
}

type countingValidator struct {
	inner schema.Validator
	calls atomic.Int64
}

func (c *countingValidator) Validate(value any) (any, error) {
	c.calls.Add(1)
	return c.inner.Validate(value)
}

func (c *countingValidator) Shape() schema.Shape { return c.inner.Shape() }

func TestHandlerSeesValidatedArgs(t *testing.T) {
	t.Parallel()
	f := Query().
		Input(schema.Fields{
			"count": {Kind: schema.KindInt},
			"tier":  {Kind: schema.KindString, Default: "basic"},
		}).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			return args, nil
		})

	out, err := mustCall(t, f, nil)(context.Background(), Args{"count": float64(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := out.(Args)
	if args["count"] != int64(3) || args["tier"] != "basic" {
		t.Fatalf("expected canonicalized args with defaults, got %v", args)
	}
}

func TestNilArgsBecomeEmptyRecord(t *testing.T) {
	t.Parallel()
	f := Query().Handler(func(ctx context.Context, env Env, args Args) (any, error) {
		if args == nil {
			t.Error("expected non-nil args")
		}
		return len(args), nil
	})
	out, err := mustCall(t, f, nil)(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 0 {
		t.Fatalf("expected empty args, got %v", out)
	}
}

func TestCallerBindsEnvSnapshot(t *testing.T) {
	t.Parallel()
	env := Env{"tier": "basic"}
	call := mustCall(t, Query().Handler(func(ctx context.Context, e Env, args Args) (any, error) {
		return e["tier"], nil
	}), env)

	env["tier"] = "mutated"
	out, err := call(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "basic" {
		t.Fatalf("expected bound snapshot, got %v", out)
	}
}

func TestNextMayRunMultipleTimes(t *testing.T) {
	t.Parallel()
	var handlerRuns int32

	f := Query().
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			if _, err := next(ctx, Env{"attempt": 1}); err != nil {
				return nil, err
			}
			return next(ctx, Env{"attempt": 2})
		}).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			atomic.AddInt32(&handlerRuns, 1)
			return env["attempt"], nil
		})

	out, err := mustCall(t, f, nil)(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&handlerRuns) != 2 {
		t.Fatalf("expected 2 handler runs, got %d", handlerRuns)
	}
	if out != 2 {
		t.Fatalf("expected result of second attempt, got %v", out)
	}
}

func TestRegisteredDescriptor(t *testing.T) {
	t.Parallel()
	reg := Mutation().
		Input(schema.Fields{"id": {Kind: schema.KindString}}).
		Returns(schema.Fields{"done": {Kind: schema.KindBool}}).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			return map[string]any{"done": true}, nil
		}).
		Public()

	if reg.Kind() != KindMutation {
		t.Fatalf("expected kind %q, got %q", KindMutation, reg.Kind())
	}
	if reg.Visibility() != VisibilityPublic {
		t.Fatalf("expected %q, got %q", VisibilityPublic, reg.Visibility())
	}
	if shape := reg.ArgsShape(); shape["id"] != schema.KindString {
		t.Fatalf("unexpected args shape: %v", shape)
	}
	if shape := reg.ReturnsShape(); shape["done"] != schema.KindBool {
		t.Fatalf("unexpected returns shape: %v", shape)
	}

	out, err := reg.Invoke(context.Background(), Env{"host": "h1"}, Args{"id": "42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]any)["done"] != true {
		t.Fatalf("unexpected result: %v", out)
	}
}

func TestInvokeMatchesCaller(t *testing.T) {
	t.Parallel()
	reg := Query().
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			return []any{env["host"], args["id"]}, nil
		}).
		Internal()

	env := Env{"host": "h1"}
	args := Args{"id": "42"}

	fromInvoke, err := reg.Invoke(context.Background(), env, args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fromCall, err := reg.Caller(env)(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(fromInvoke.([]any), fromCall.([]any)) {
		t.Fatalf("invoke %v differs from call %v", fromInvoke, fromCall)
	}
}

func TestInvocationIdentity(t *testing.T) {
	t.Parallel()
	var seen *Invocation

	f := Action().Handler(func(ctx context.Context, env Env, args Args) (any, error) {
		inv, ok := FromInvocationContext(ctx)
		if !ok {
			t.Error("expected invocation in context")
			return nil, nil
		}
		seen = inv
		return inv.ID, nil
	})
	call := mustCall(t, f, nil)

	first, err := call(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.ID == "" || seen.Kind != KindAction || seen.Name != "" {
		t.Fatalf("unexpected invocation: %+v", seen)
	}

	second, err := call(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct invocation IDs per call")
	}

	// An invocation already in the context is reused, not replaced.
	preset := &Invocation{ID: "outer", Kind: KindQuery, Name: "parent"}
	ctx := NewInvocationContext(context.Background(), preset)
	out, err := call(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "outer" {
		t.Fatalf("expected preset invocation, got %v", out)
	}
}

func TestConcurrentInvocations(t *testing.T) {
	t.Parallel()
	var runs atomic.Int64

	f := Query().
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			return next(ctx, Env{"layer": "on"})
		}).
		Input(schema.Fields{"n": {Kind: schema.KindInt}}).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			runs.Add(1)
			return args["n"], nil
		})
	call := mustCall(t, f, Env{"host": "shared"})

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 32; i++ {
		n := i
		g.Go(func() error {
			out, err := call(ctx, Args{"n": n})
			if err != nil {
				return err
			}
			if out != int64(n) {
				return errors.New("result crossed invocations")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := runs.Load(); got != 32 {
		t.Fatalf("expected 32 runs, got %d", got)
	}
}

func TestRegisteredQueryEndToEnd(t *testing.T) {
	t.Parallel()
	var argsSeen Args

	reg := Query().
		Input(schema.Fields{"count": {Kind: schema.KindInt}}).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			argsSeen = args
			history := env["history"].([]int64)
			n := int(args["count"].(int64))
			recent := make([]int64, 0, n)
			for i := len(history) - 1; i >= 0 && len(recent) < n; i-- {
				recent = append(recent, history[i])
			}
			return recent, nil
		}).
		Public()

	env := Env{"history": []int64{23, 42, 7}}
	out, err := reg.Invoke(context.Background(), env, Args{"count": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(argsSeen) != 1 || argsSeen["count"] != int64(2) {
		t.Fatalf("handler saw %v, want exactly the validated args", argsSeen)
	}
	// Most recent first, delivered without any reshaping.
	if want := []int64{7, 42}; !slices.Equal(out.([]int64), want) {
		t.Fatalf("expected %v, got %v", want, out)
	}

	// A side-effect-free handler makes repeated invocation deterministic.
	again, err := reg.Invoke(context.Background(), env, Args{"count": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(again.([]int64), out.([]int64)) {
		t.Fatalf("repeat invocation diverged: %v vs %v", again, out)
	}
}

func TestAbortBeforeNextSkipsHandler(t *testing.T) {
	t.Parallel()
	denied := errors.New("quota exhausted")
	var handlerRuns, afterNext int32
	var observed error

	f := Mutation().
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			out, err := next(ctx, Env{"a": 1})
			atomic.AddInt32(&afterNext, 1)
			observed = err
			return out, err
		}).
		Use(func(ctx context.Context, env Env, next Next) (any, error) {
			return nil, denied
		}).
		Handler(func(ctx context.Context, env Env, args Args) (any, error) {
			atomic.AddInt32(&handlerRuns, 1)
			return nil, nil
		})

	_, err := mustCall(t, f, nil)(context.Background(), nil)
	if err != denied {
		t.Fatalf("expected abort error, got %v", err)
	}
	if atomic.LoadInt32(&handlerRuns) != 0 {
		t.Fatal("handler ran despite abort")
	}
	if atomic.LoadInt32(&afterNext) != 1 || observed != denied {
		t.Fatalf("outer layer did not observe the abort: runs=%d err=%v", afterNext, observed)
	}
}
