package loom

import (
	"context"
	"encoding/json"
	"fmt"
)

// TypedHandler adapts a function over typed argument and result structs into
// a Handler. Both directions go through a JSON round trip: the validated
// Args decode into I, and the result O re-encodes into the plain map and
// scalar form a returns validator gates. Struct tags drive field names
// exactly as in schema.For.
func TypedHandler[I, O any](fn func(ctx context.Context, env Env, in I) (O, error)) Handler {
	return func(ctx context.Context, env Env, args Args) (any, error) {
		var in I
		payload, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("loom: encoding args: %w", err)
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, fmt.Errorf("loom: decoding args into %T: %w", in, err)
		}
		out, err := fn(ctx, env, in)
		if err != nil {
			return nil, err
		}
		return encodeResult(out)
	}
}

func encodeResult(out any) (any, error) {
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("loom: encoding result: %w", err)
	}
	var result any
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("loom: decoding result: %w", err)
	}
	return result, nil
}
