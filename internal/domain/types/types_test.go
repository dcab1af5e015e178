package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/hiscores/internal/domain/history"
	"github.com/okian/hiscores/internal/domain/model"
	types "github.com/okian/hiscores/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/tidwall/gjson"
)

func TestUserProfile(t *testing.T) {
	Convey("Given a profile wrapping a player with legacy unlocks", t, func() {
		p := model.NewPlayer("Lynx", 10)
		p.Achievements["tier-master"] = 1
		p.Achievements["tier-grandmaster"] = 2

		profile := types.UserProfile{
			Player:       p,
			Rank:         4,
			TotalPlayers: 9,
			Achievements: map[string]int64{"tier-grandmaster": 2},
		}

		Convey("When encoded", func() {
			data, err := json.Marshal(profile)
			So(err, ShouldBeNil)

			Convey("Then the projected achievements replace the stored ones", func() {
				So(gjson.GetBytes(data, "achievements.tier-grandmaster").Int(), ShouldEqual, int64(2))
				So(gjson.GetBytes(data, "achievements.tier-master").Exists(), ShouldBeFalse)
			})

			Convey("Then player fields are inlined", func() {
				So(gjson.GetBytes(data, "username").String(), ShouldEqual, "Lynx")
				So(gjson.GetBytes(data, "rank").Int(), ShouldEqual, int64(4))
				So(gjson.GetBytes(data, "skills.attack.level").Int(), ShouldEqual, int64(1))
			})
		})
	})
}

func TestLeaderboard(t *testing.T) {
	Convey("Given an empty leaderboard", t, func() {
		lb := types.Leaderboard{
			Players:   []types.LeaderboardEntry{},
			OnTheRise: []history.Riser{},
		}

		Convey("Then empty lists encode as arrays", func() {
			data, err := json.Marshal(lb)
			So(err, ShouldBeNil)
			So(gjson.GetBytes(data, "players").IsArray(), ShouldBeTrue)
			So(gjson.GetBytes(data, "onTheRise").IsArray(), ShouldBeTrue)
			So(gjson.GetBytes(data, "trendSummary.playersDelta").Int(), ShouldEqual, int64(0))
		})
	})
}
