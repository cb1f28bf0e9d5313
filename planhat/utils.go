package planhat

func toString(intf any) (result string, ok bool) {
	if intf == nil {
		return
	}
	result, ok = intf.(string)
	return
}

// firstFieldValue digs a JSON list-of-objects field (the shape the directory
// API uses for phones, addresses and the like) and returns the first
// non-empty string under the given key.
func firstFieldValue(intf any, key string) (result string, ok bool) {
	var list []any
	if list, ok = intf.([]any); !ok {
		return
	}
	for _, item := range list {
		var jo map[string]any
		if jo, ok = item.(map[string]any); ok {
			if result, ok = toString(jo[key]); ok && len(result) > 0 {
				return
			}
		}
	}
	ok = false
	return
}

type Set[K comparable] map[K]struct{}

func NewSet[K comparable]() Set[K] {
	return make(Set[K])
}
func MakeSet[K comparable](keys []K) Set[K] {
	var ns = NewSet[K]()
	for _, k := range keys {
		ns.Add(k)
	}
	return ns
}
func (s Set[K]) Has(key K) (ok bool) {
	_, ok = s[key]
	return
}
func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}
