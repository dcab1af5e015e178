package achievement

import "github.com/okian/hiscores/internal/domain/model"

// Prevalence counts how many players have ever unlocked each catalog key.
// Keys implied by a higher key of the same family are counted too. Players
// with no persisted achievements are evaluated against c instead. Every
// catalog key is present in the result.
func Prevalence(players []*model.Player, c *Context) map[Key]int {
	counts := make(map[Key]int, len(catalog))
	for _, e := range catalog {
		counts[e.Key] = 0
	}
	for _, p := range players {
		if p == nil {
			continue
		}
		var held Set
		if len(p.Achievements) > 0 {
			held = SetFromUnlocks(p.Achievements)
		} else {
			held = Evaluate(p, c)
		}
		for k := range Expand(held) {
			if _, ok := counts[k]; ok {
				counts[k]++
			}
		}
	}
	return counts
}

// Expand returns held plus every key below the highest held key of each
// family. held is not modified.
func Expand(held Set) Set {
	out := make(Set, len(held))
	for k := range held {
		out.Add(k)
	}
	for _, f := range families {
		for i, k := range f.Chain {
			if !held.Has(k) {
				continue
			}
			for _, lower := range f.Chain[i+1:] {
				out.Add(lower)
			}
			break
		}
	}
	return out
}
