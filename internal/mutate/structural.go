package mutate

import "math/rand"

// mutateStructurally applies one of field drop, field retype, or value
// widen to a cloned seed payload ("clone a pooled payload
// and apply a single structural mutation"). The source map is never
// modified; the pool's stored entry must stay stable across Sample calls.
func mutateStructurally(rng *rand.Rand, src map[string]interface{}) map[string]interface{} {
	out := cloneMap(src)
	if len(out) == 0 {
		return out
	}

	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	target := keys[rng.Intn(len(keys))]

	switch rng.Intn(3) {
	case 0: // field drop
		delete(out, target)
	case 1: // field retype
		out[target] = retype(out[target])
	case 2: // value widen
		out[target] = widen(out[target])
	}
	return out
}

func cloneMap(src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// retype swaps a value for one of a different JSON type, the same
// type-confusion idea schema.Generator.typeConfusedValue applies during
// aggressive generation.
func retype(v interface{}) interface{} {
	switch v.(type) {
	case string:
		return float64(0)
	case float64, int64, int:
		return "retyped"
	case bool:
		return "retyped"
	case map[string]interface{}:
		return []interface{}{"retyped"}
	case []interface{}:
		return map[string]interface{}{"retyped": true}
	default:
		return "retyped"
	}
}

// widen grows a value toward a boundary: a string doubles, a number scales
// up, a collection doubles its elements.
func widen(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return t + t
	case float64:
		return t * 1000
	case int64:
		return t * 1000
	case []interface{}:
		return append(append([]interface{}{}, t...), t...)
	case map[string]interface{}:
		out := cloneMap(t)
		out["widened_extra_field"] = true
		return out
	default:
		return v
	}
}
