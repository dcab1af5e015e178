package ranking_test

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/hiscores/internal/domain/model"
	"github.com/okian/hiscores/internal/domain/ranking"
	"github.com/okian/hiscores/internal/domain/skills"
	. "github.com/smartystreets/goconvey/convey"
)

func playerAtLevel(name string, level int) *model.Player {
	p := model.NewPlayer(name, 0)
	for _, s := range skills.All() {
		p.SetXP(s, skills.XPForLevel(level))
	}
	return p
}

func TestBuildSkillAggregate(t *testing.T) {
	Convey("Given 150 players with distinct attack xp", t, func() {
		rng := rand.New(rand.NewSource(42))
		xps := rng.Perm(150)
		players := make([]*model.Player, 0, 150)
		for i, v := range xps {
			p := model.NewPlayer(fmt.Sprintf("Player%03d", i), 0)
			p.SetXP(skills.Attack, int64(v+1)*1_000)
			players = append(players, p)
		}

		agg := ranking.BuildSkillAggregate(players, skills.Attack)

		Convey("Then the top 100 matches a full sort", func() {
			sorted := append([]*model.Player(nil), players...)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i].XP(skills.Attack) > sorted[j].XP(skills.Attack)
			})
			want := make([]string, 100)
			for i := range want {
				want[i] = sorted[i].Username
			}
			got := make([]string, len(agg.Top))
			for i, e := range agg.Top {
				got[i] = e.Username
				So(e.Rank, ShouldEqual, i+1)
			}
			So(cmp.Diff(want, got), ShouldBeEmpty)
		})

		Convey("Then the top 10 set is inside the top 100 set", func() {
			So(len(agg.Top10), ShouldEqual, 10)
			So(len(agg.Top100), ShouldEqual, 100)
			for k := range agg.Top10 {
				_, ok := agg.Top100[k]
				So(ok, ShouldBeTrue)
			}
		})

		Convey("Then the single leader holds the highest xp", func() {
			So(agg.Leaders, ShouldHaveLength, 1)
			So(agg.Leaders[0], ShouldEqual, model.NormalizeUsername(agg.Top[0].Username))
		})
	})

	Convey("Given tied leaders and zero-xp players", t, func() {
		a := model.NewPlayer("Alice", 0)
		b := model.NewPlayer("bob", 0)
		c := model.NewPlayer("Carol", 0)
		a.SetXP(skills.Mining, 500)
		b.SetXP(skills.Mining, 500)

		agg := ranking.BuildSkillAggregate([]*model.Player{c, b, a}, skills.Mining)

		Convey("Then both tied players lead", func() {
			So(agg.Leaders, ShouldHaveLength, 2)
			So(agg.Leaders, ShouldContain, "alice")
			So(agg.Leaders, ShouldContain, "bob")
		})

		Convey("Then ties order by username", func() {
			So(agg.Top[0].Username, ShouldEqual, "Alice")
			So(agg.Top[1].Username, ShouldEqual, "bob")
		})

		Convey("Then nobody leads a skill with no xp", func() {
			none := ranking.BuildSkillAggregate([]*model.Player{a, b, c}, skills.Hunter)
			So(none.Leaders, ShouldBeEmpty)
		})
	})

	Convey("Given an empty population", t, func() {
		agg := ranking.BuildSkillAggregate(nil, skills.Attack)
		So(agg.AvgLevel, ShouldEqual, 1.0)
		So(agg.Top, ShouldBeEmpty)
		So(agg.Leaders, ShouldBeEmpty)
	})

	Convey("Given players at levels 1 and 99", t, func() {
		agg := ranking.BuildSkillAggregate([]*model.Player{playerAtLevel("a", 1), playerAtLevel("b", 99)}, skills.Cooking)
		So(agg.AvgLevel, ShouldEqual, 50.0)
	})

	Convey("BuildSkillAggregates covers every skill", t, func() {
		m := ranking.BuildSkillAggregates([]*model.Player{playerAtLevel("a", 10)})
		So(len(m), ShouldEqual, skills.Count)
	})
}

func TestSkillListing(t *testing.T) {
	Convey("Given players with mixed magic xp", t, func() {
		a := model.NewPlayer("zed", 0)
		b := model.NewPlayer("amy", 0)
		c := model.NewPlayer("Bo", 0)
		a.SetXP(skills.Magic, 10_000)
		b.SetXP(skills.Magic, 10_000)
		c.SetXP(skills.Magic, 20_000)
		players := []*model.Player{a, b, c}

		Convey("Then rows sort by level, xp and username", func() {
			rows := ranking.SkillListing(players, skills.Magic, 0)
			So(rows, ShouldHaveLength, 3)
			So(rows[0].Username, ShouldEqual, "Bo")
			So(rows[1].Username, ShouldEqual, "amy")
			So(rows[2].Username, ShouldEqual, "zed")
			So(rows[2].Rank, ShouldEqual, 3)
			So(rows[0].Level, ShouldEqual, skills.LevelFromXP(20_000))
		})

		Convey("Then a limit truncates", func() {
			So(ranking.SkillListing(players, skills.Magic, 1), ShouldHaveLength, 1)
			So(ranking.SkillListing(players, skills.Magic, 10), ShouldHaveLength, 3)
		})
	})
}

func TestRankOverall(t *testing.T) {
	Convey("Given players with equal totals", t, func() {
		a := playerAtLevel("Zoe", 50)
		b := playerAtLevel("adam", 50)
		c := playerAtLevel("Max", 99)

		entries := ranking.RankOverall([]*model.Player{a, b, c})

		Convey("Then the highest total ranks first and ties break by username", func() {
			So(entries[0].Username, ShouldEqual, "Max")
			So(entries[1].Username, ShouldEqual, "adam")
			So(entries[2].Username, ShouldEqual, "Zoe")
			So(entries[0].TotalLevel, ShouldEqual, skills.MaxTotalLevel)
		})

		Convey("Then ranks are keyed by lower-cased username", func() {
			ranks := ranking.RankByKey(entries)
			So(ranks["max"], ShouldEqual, 1)
			So(ranks["adam"], ShouldEqual, 2)
			So(ranks["zoe"], ShouldEqual, 3)
		})

		Convey("Then a stale cached total does not change ordering", func() {
			a.TotalLevel = 9_999
			entries := ranking.RankOverall([]*model.Player{a, b, c})
			So(entries[0].Username, ShouldEqual, "Max")
		})
	})
}

func TestClassifyTier(t *testing.T) {
	Convey("Rank 1 is always Grandmaster", t, func() {
		So(ranking.ClassifyTier(1, 1, 0), ShouldEqual, ranking.Grandmaster)
		So(ranking.ClassifyTier(1, 1_000_000, 0), ShouldEqual, ranking.Grandmaster)
	})

	Convey("Three skill crowns force Grandmaster", t, func() {
		So(ranking.ClassifyTier(400, 1_000, 3), ShouldEqual, ranking.Grandmaster)
		So(ranking.ClassifyTier(400, 1_000, 2), ShouldNotEqual, ranking.Grandmaster)
	})

	Convey("Missing context is untiered", t, func() {
		So(ranking.ClassifyTier(0, 10, 0), ShouldEqual, ranking.Untiered)
		So(ranking.ClassifyTier(3, 0, 0), ShouldEqual, ranking.Untiered)
	})

	Convey("The small regime ends at 500 players", t, func() {
		So(ranking.ClassifyTier(2, 500, 0), ShouldEqual, ranking.Master)
		So(ranking.ClassifyTier(2, 501, 0), ShouldEqual, ranking.Platinum)
	})

	Convey("Small populations use absolute bands", t, func() {
		So(ranking.ClassifyTier(5, 400, 0), ShouldEqual, ranking.Diamond)
		So(ranking.ClassifyTier(15, 400, 0), ShouldEqual, ranking.Platinum)
		So(ranking.ClassifyTier(20, 400, 0), ShouldEqual, ranking.Gold)
		So(ranking.ClassifyTier(21, 400, 0), ShouldEqual, ranking.Silver)
		So(ranking.ClassifyTier(80, 400, 0), ShouldEqual, ranking.Silver)
		So(ranking.ClassifyTier(81, 400, 0), ShouldEqual, ranking.Bronze)
		So(ranking.ClassifyTier(200, 400, 0), ShouldEqual, ranking.Bronze)
		So(ranking.ClassifyTier(201, 400, 0), ShouldEqual, ranking.Untiered)
	})

	Convey("Large populations use percentiles", t, func() {
		So(ranking.ClassifyTier(2, 20_000, 0), ShouldEqual, ranking.Master)
		So(ranking.ClassifyTier(20, 20_000, 0), ShouldEqual, ranking.Diamond)
		So(ranking.ClassifyTier(200, 20_000, 0), ShouldEqual, ranking.Platinum)
		So(ranking.ClassifyTier(1_000, 20_000, 0), ShouldEqual, ranking.Gold)
		So(ranking.ClassifyTier(4_000, 20_000, 0), ShouldEqual, ranking.Silver)
		So(ranking.ClassifyTier(10_000, 20_000, 0), ShouldEqual, ranking.Bronze)
		So(ranking.ClassifyTier(10_001, 20_000, 0), ShouldEqual, ranking.Untiered)
	})

	Convey("Names follow the ordinal", t, func() {
		So(ranking.Grandmaster.String(), ShouldEqual, "Grandmaster")
		So(ranking.Bronze.String(), ShouldEqual, "Bronze")
		So(ranking.Tier(42).String(), ShouldEqual, "Untiered")
	})
}

func TestFallbackTier(t *testing.T) {
	Convey("Fallback uses total level", t, func() {
		So(ranking.FallbackTier(1700), ShouldEqual, ranking.FallbackExpert)
		So(ranking.FallbackTier(1699), ShouldEqual, ranking.FallbackAdept)
		So(ranking.FallbackTier(900), ShouldEqual, ranking.FallbackAdept)
		So(ranking.FallbackTier(899), ShouldEqual, ranking.FallbackNovice)
	})
}

func TestThreePlayerPopulation(t *testing.T) {
	Convey("Given players at levels 99, 44 and 22", t, func() {
		players := []*model.Player{playerAtLevel("carl", 22), playerAtLevel("ann", 99), playerAtLevel("bea", 44)}
		entries := ranking.RankOverall(players)
		So(entries[0].Username, ShouldEqual, "ann")
		So(entries[1].Username, ShouldEqual, "bea")
		So(entries[2].Username, ShouldEqual, "carl")

		Convey("Then tiers are Grandmaster, Master and a fallback", func() {
			first := ranking.Info(1, 3, 0, entries[0].TotalLevel)
			second := ranking.Info(2, 3, 0, entries[1].TotalLevel)
			third := ranking.Info(3, 3, 0, entries[2].TotalLevel)

			So(first.Name, ShouldEqual, "Grandmaster")
			So(first.Source, ShouldEqual, ranking.SourceRank)
			So(second.Name, ShouldEqual, "Master")
			So(third.Source, ShouldEqual, ranking.SourceFallback)
			So(third.Name, ShouldEqual, ranking.FallbackNovice)
			So(third.Ordinal, ShouldBeGreaterThan, int(ranking.Bronze))
		})
	})
}
