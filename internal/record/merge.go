package record

// Merge combines source into target and returns the result. Neither argument
// is modified.
//
// When source is not a Map, target is returned unchanged; when target is not
// a Map, source is returned. Otherwise every key of source wins over target:
// lists replace, nested maps merge recursively, and scalars overwrite,
// including an explicit null. Keys only present in target are kept.
func Merge(target, source Value) Value {
	src, ok := source.(Map)
	if !ok {
		return target
	}
	dst, ok := target.(Map)
	if !ok {
		return source
	}
	return MergeMaps(dst, src)
}

// MergeMaps is Merge for two maps. Either may be nil.
func MergeMaps(target, source Map) Map {
	out := make(Map, len(target)+len(source))
	for k, v := range target {
		out[k] = v
	}
	for k, sv := range source {
		switch s := sv.(type) {
		case List:
			out[k] = s.Clone()
		case Map:
			if tm, ok := out[k].(Map); ok {
				out[k] = MergeMaps(tm, s)
			} else {
				out[k] = s.Clone()
			}
		case nil:
			out[k] = Null()
		default:
			out[k] = sv
		}
	}
	return out
}
