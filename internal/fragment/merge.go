package fragment

// Merge folds fragments left to right into one. Unparsable fragments are
// skipped. No input yields an empty mapping; one input yields a copy of it.
//
// Field rules, applied recursively:
//   - a null accumulator value adopts the incoming value verbatim
//   - two sequences concatenate, dropping incoming items whose normalized
//     identity already appears, preserving first-seen order
//   - two mappings merge field by field
//   - anything else keeps the accumulator's value
func Merge(fragments []Fragment) Fragment {
	var acc Fragment
	started := false
	for _, f := range fragments {
		if f.kind == KindUnparsable {
			continue
		}
		if !started {
			acc = f.Clone()
			started = true
			continue
		}
		acc = merge(acc, f)
	}
	if !started {
		return Mapping(nil)
	}
	return acc
}

func merge(acc, in Fragment) Fragment {
	if in.kind == KindUnparsable {
		return acc
	}
	if acc.IsNull() {
		return in.Clone()
	}
	switch {
	case acc.kind == KindMapping && in.kind == KindMapping:
		return mergeMappings(acc, in)
	case acc.kind == KindSequence && in.kind == KindSequence:
		return mergeSequences(acc, in)
	default:
		return acc
	}
}

func mergeMappings(acc, in Fragment) Fragment {
	out := make(map[string]Fragment, len(acc.fields))
	for name, field := range acc.fields {
		out[name] = field
	}
	for name, incoming := range in.fields {
		existing, ok := out[name]
		if !ok || existing.IsNull() {
			out[name] = incoming.Clone()
			continue
		}
		out[name] = merge(existing, incoming)
	}
	return Fragment{kind: KindMapping, fields: out}
}

func mergeSequences(acc, in Fragment) Fragment {
	seen := make(map[string]struct{}, len(acc.items))
	out := make([]Fragment, 0, len(acc.items)+len(in.items))
	for _, item := range acc.items {
		seen[item.identity()] = struct{}{}
		out = append(out, item)
	}
	for _, item := range in.items {
		id := item.identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, item.Clone())
	}
	return Fragment{kind: KindSequence, items: out}
}
