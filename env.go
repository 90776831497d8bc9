package loom

import "maps"

// Env holds the execution context for one invocation: host handles,
// authorization data, request-scoped values. Middleware contribute to it by
// passing patches to Next; an Env is never mutated once handed to a layer.
type Env map[string]any

// Args holds the named arguments for one invocation.
type Args map[string]any

// Clone creates a shallow copy of the Env.
func (e Env) Clone() Env {
	return maps.Clone(e)
}

// Merge unions patches over base into a fresh Env. Later patches win on key
// conflicts; base and the patches are left untouched.
func Merge(base Env, patches ...Env) Env {
	merged := make(Env, len(base))
	maps.Copy(merged, base)
	for _, patch := range patches {
		maps.Copy(merged, patch)
	}
	return merged
}
