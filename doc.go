// Package loom provides a fluent builder for assembling request-handling
// pipelines: an ordered middleware stack, optional input and output
// validation, and a terminal handler, composed immutably and exposed either
// as a plain callable or as a registered endpoint for a host platform.
//
// # Basic Usage
//
// Start a chain with [Query], [Mutation], or [Action], attach middleware,
// validators, and a handler, then bind an execution environment:
//
//	call, err := loom.Query().
//		Use(middleware.Logging(logger)).
//		Input(schema.Fields{"id": {Kind: schema.KindString}}).
//		Handler(func(ctx context.Context, env loom.Env, args loom.Args) (any, error) {
//			store := env["store"].(*Store)
//			return store.Get(ctx, args["id"].(string))
//		}).
//		Caller(loom.Env{"store": store})
//	out, err := call(ctx, loom.Args{"id": "42"})
//
// Every chain method returns a new builder over a new [Definition]; earlier
// builders remain valid, so chains branch freely and definitions are safe to
// share across goroutines.
//
// # Middleware
//
// Middleware wrap the remainder of the pipeline in registration order; the
// first middleware added is the outermost layer. Each layer receives the
// merged [Env] at its depth and contributes to inner layers by passing a
// patch to its next function:
//
//	func WithTenant(tenant string) loom.Middleware {
//		return func(ctx context.Context, env loom.Env, next loom.Next) (any, error) {
//			return next(ctx, loom.Env{"tenant": tenant})
//		}
//	}
//
// Patches merge by shallow union into a fresh map; inner layers win on key
// conflicts. A middleware may skip next entirely to short-circuit, or call
// it multiple times. Errors from any layer propagate outward unchanged.
//
// # Validation
//
// [Builder.Input] gates the raw arguments once, before the first middleware;
// [Builder.Returns] gates the final result once, after the unwind, including
// results produced by a short-circuiting middleware. Validators come from
// the schema package: field maps, JSON schemas, Go struct types, or custom
// implementations of schema.Validator.
//
// # Registration
//
// A handled chain ends either in [Builder.Caller], which binds an Env and
// yields a [Call], or in [Builder.Public]/[Builder.Internal], which freeze
// the definition into a [Registered] descriptor for a host registry. Both
// paths execute the identical composition. A registered definition is
// terminal: no further chain calls are possible.
//
// # Extension
//
// Custom builder types embed [Builder] with themselves as the type
// parameter and pass their constructor as the clone factory; every inherited
// chain method then returns the custom type:
//
//	type TxFunc struct {
//		loom.Builder[*TxFunc]
//	}
//
//	func NewTxFunc(def loom.Definition) *TxFunc {
//		f := &TxFunc{}
//		f.Builder = loom.NewBuilder(def, NewTxFunc)
//		return f
//	}
//
// [Extend] rewraps any existing definition in such a type.
package loom
