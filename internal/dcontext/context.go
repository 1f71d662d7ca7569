package dcontext

import "context"

// valuesContext answers string keys from a fixed map before asking its
// parent.
type valuesContext struct {
	context.Context
	values map[string]any
}

// WithValues returns a context in which each key of m, as a string, looks up
// its value. m is copied.
func WithValues(ctx context.Context, m map[string]any) context.Context {
	values := make(map[string]any, len(m))
	for k, v := range m {
		values[k] = v
	}
	return valuesContext{Context: ctx, values: values}
}

func (c valuesContext) Value(key any) any {
	if k, ok := key.(string); ok {
		if v, ok := c.values[k]; ok {
			return v
		}
	}
	return c.Context.Value(key)
}

// GetStringValue returns the string stored under key, or "".
func GetStringValue(ctx context.Context, key any) string {
	s, _ := ctx.Value(key).(string)
	return s
}
