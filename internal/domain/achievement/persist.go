package achievement

import "github.com/okian/hiscores/internal/domain/model"

// MergeNewUnlocks records keys from set that p has not unlocked yet, stamped
// with nowMs. Existing timestamps are never changed. It returns the number of
// keys added.
func MergeNewUnlocks(p *model.Player, set Set, nowMs int64) int {
	if p == nil {
		return 0
	}
	if p.Achievements == nil {
		p.Achievements = make(map[string]int64, len(set))
	}
	added := 0
	for _, k := range set.Sorted() {
		if _, ok := p.Achievements[string(k)]; ok {
			continue
		}
		p.Achievements[string(k)] = nowMs
		added++
	}
	return added
}

// PruneAchievementFamilies deletes every persisted family key below the
// highest one present. The surviving key keeps its timestamp. It returns the
// number of keys removed.
func PruneAchievementFamilies(p *model.Player) int {
	if p == nil || len(p.Achievements) == 0 {
		return 0
	}
	return pruneUnlocks(p.Achievements)
}

// ProjectHighestAchievementFamilies returns a pruned copy of unlocks.
func ProjectHighestAchievementFamilies(unlocks map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(unlocks))
	for k, v := range unlocks {
		out[k] = v
	}
	pruneUnlocks(out)
	return out
}

func pruneUnlocks(unlocks map[string]int64) int {
	present := SetFromUnlocks(unlocks)
	removed := 0
	for _, f := range families {
		top, ok := HighestInChain(f.Chain, present)
		if !ok {
			continue
		}
		for _, k := range f.Chain {
			if k == top {
				continue
			}
			if _, ok := unlocks[string(k)]; ok {
				delete(unlocks, string(k))
				removed++
			}
		}
	}
	return removed
}
