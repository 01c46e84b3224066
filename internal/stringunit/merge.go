package stringunit

// Unique drops units with duplicate IDs. Each ID keeps the position of its
// first occurrence and the value of its last.
func Unique(units []Unit) []Unit {
	pos := make(map[string]int, len(units))
	out := make([]Unit, 0, len(units))
	for _, u := range units {
		id := u.ID()
		if i, ok := pos[id]; ok {
			out[i] = u
			continue
		}
		pos[id] = len(out)
		out = append(out, u)
	}
	return out
}

// Merge unions incoming into existing by ID; incoming units win.
func Merge(existing, incoming []Unit) []Unit {
	all := make([]Unit, 0, len(existing)+len(incoming))
	all = append(all, existing...)
	all = append(all, incoming...)
	return Unique(all)
}
