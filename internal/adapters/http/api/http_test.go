package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/hiscores/internal/adapters/http/api"
	"github.com/okian/hiscores/internal/adapters/repository"
	service "github.com/okian/hiscores/internal/app"
	"github.com/okian/hiscores/internal/domain/achievement"
	"github.com/okian/hiscores/internal/domain/history"
	"github.com/okian/hiscores/internal/domain/model"
	"github.com/okian/hiscores/internal/domain/ranking"
	"github.com/okian/hiscores/internal/domain/skills"
	"github.com/okian/hiscores/internal/domain/types"
	"github.com/okian/hiscores/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/tidwall/gjson"
)

// mockDependencies records the limits it is asked for.
type mockDependencies struct {
	lastLimit int
	lastSkill string
	lastUser  string

	lb       types.Leaderboard
	lbErr    error
	skillErr error
	statsErr error
	userErr  error
}

func (m *mockDependencies) Leaderboard(ctx context.Context, limit int) (types.Leaderboard, error) {
	m.lastLimit = limit
	if m.lbErr != nil {
		return types.Leaderboard{}, m.lbErr
	}
	return m.lb, nil
}

func (m *mockDependencies) SkillRankings(ctx context.Context, limit int) (types.SkillRankings, error) {
	m.lastLimit = limit
	return types.SkillRankings{
		Skills: map[skills.Skill][]ranking.SkillEntry{
			skills.Attack: {{Rank: 1, Username: "Zezima", Level: 99, XP: 13_034_431}},
		},
	}, nil
}

func (m *mockDependencies) SkillRanking(ctx context.Context, skill string, limit int) (types.SkillRanking, error) {
	m.lastLimit = limit
	m.lastSkill = skill
	if m.skillErr != nil {
		return types.SkillRanking{}, m.skillErr
	}
	return types.SkillRanking{Skill: skills.Skill(skill), Players: []ranking.SkillEntry{}}, nil
}

func (m *mockDependencies) AchievementStats(ctx context.Context) (types.AchievementStats, error) {
	if m.statsErr != nil {
		return types.AchievementStats{}, m.statsErr
	}
	return types.AchievementStats{
		Counts:       map[achievement.Key]int{achievement.TierGrandmaster: 1},
		TotalPlayers: 1,
	}, nil
}

func (m *mockDependencies) Catalog() []achievement.Entry {
	return achievement.Catalog()
}

func (m *mockDependencies) User(ctx context.Context, username string) (types.UserProfile, error) {
	m.lastUser = username
	if m.userErr != nil {
		return types.UserProfile{}, m.userErr
	}
	return types.UserProfile{Player: model.NewPlayer(username, 1), Rank: 1, TotalPlayers: 1}, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an API router over mock dependencies", t, func() {
		deps := &mockDependencies{
			lb: types.Leaderboard{
				Players:      []types.LeaderboardEntry{{Rank: 1, Username: "Zezima", Tier: "Grandmaster"}},
				TotalPlayers: 1,
				OnTheRise:    []history.Riser{},
			},
		}
		stats := &mockStatsProvider{stats: map[string]interface{}{"started": true}}
		router := api.NewRouter(context.Background(), api.NewServer(deps, stats, 100))

		Convey("When calling the health endpoint", func() {
			w := serve(router, http.MethodGet, "/healthz")

			Convey("Then it reports ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(gjson.Get(w.Body.String(), "status").String(), ShouldEqual, "ok")
			})
		})

		Convey("When scraping metrics", func() {
			serve(router, http.MethodGet, "/healthz")
			w := serve(router, http.MethodGet, "/metrics")

			Convey("Then the custom registry is exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "hiscores_http_requests_total")
			})
		})

		Convey("When requesting the leaderboard without a limit", func() {
			w := serve(router, http.MethodGet, "/api/leaderboard")

			Convey("Then the service default is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 0)
				So(gjson.Get(w.Body.String(), "players.0.username").String(), ShouldEqual, "Zezima")
				So(gjson.Get(w.Body.String(), "onTheRise").IsArray(), ShouldBeTrue)
			})
		})

		Convey("When requesting the leaderboard with limits", func() {
			cases := []struct {
				query  string
				status int
				limit  int
			}{
				{"limit=10", http.StatusOK, 10},
				{"limit=100", http.StatusOK, 100},
				{"limit=1000", http.StatusOK, 100},
				{"limit=0", http.StatusBadRequest, -1},
				{"limit=-5", http.StatusBadRequest, -1},
				{"limit=abc", http.StatusBadRequest, -1},
				{"limit=1.5", http.StatusBadRequest, -1},
			}
			for _, tc := range cases {
				Convey(fmt.Sprintf("And the query is %s", tc.query), func() {
					deps.lastLimit = -1
					w := serve(router, http.MethodGet, "/api/leaderboard?"+tc.query)

					So(w.Code, ShouldEqual, tc.status)
					So(deps.lastLimit, ShouldEqual, tc.limit)
					if tc.status == http.StatusBadRequest {
						So(gjson.Get(w.Body.String(), "code").String(), ShouldEqual, "bad_request")
					}
				})
			}
		})

		Convey("When the leaderboard store fails", func() {
			deps.lbErr = repository.ErrStoreUnavailable
			w := serve(router, http.MethodGet, "/api/leaderboard")

			Convey("Then it returns an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(gjson.Get(w.Body.String(), "code").String(), ShouldEqual, "internal_error")
			})
		})

		Convey("When listing every skill", func() {
			w := serve(router, http.MethodGet, "/api/skill-rankings?limit=5")

			Convey("Then listings are keyed by skill", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 5)
				So(gjson.Get(w.Body.String(), "skills.attack.0.level").Int(), ShouldEqual, int64(99))
			})
		})

		Convey("When listing one skill", func() {
			w := serve(router, http.MethodGet, "/api/skill-rankings/Magic")

			Convey("Then the path parameter reaches the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastSkill, ShouldEqual, "Magic")
			})
		})

		Convey("When listing an unknown skill", func() {
			deps.skillErr = fmt.Errorf("%w: %q", service.ErrUnknownSkill, "sailing")
			w := serve(router, http.MethodGet, "/api/skill-rankings/sailing")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(gjson.Get(w.Body.String(), "code").String(), ShouldEqual, "not_found")
			})
		})

		Convey("When requesting achievement stats and the catalog", func() {
			statsRes := serve(router, http.MethodGet, "/api/achievements/stats")
			catalogRes := serve(router, http.MethodGet, "/api/achievements/catalog")

			Convey("Then both are served", func() {
				So(statsRes.Code, ShouldEqual, http.StatusOK)
				So(gjson.Get(statsRes.Body.String(), "counts.tier-grandmaster").Int(), ShouldEqual, int64(1))

				So(catalogRes.Code, ShouldEqual, http.StatusOK)
				So(gjson.Get(catalogRes.Body.String(), "total").Int(), ShouldEqual, int64(len(achievement.Catalog())))
				So(gjson.Get(catalogRes.Body.String(), "achievements.0.key").String(), ShouldEqual, string(achievement.TierGrandmaster))
			})
		})

		Convey("When requesting a user", func() {
			w := serve(router, http.MethodGet, "/api/users/Zezima")

			Convey("Then the profile is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastUser, ShouldEqual, "Zezima")
				So(gjson.Get(w.Body.String(), "username").String(), ShouldEqual, "Zezima")
				So(gjson.Get(w.Body.String(), "rank").Int(), ShouldEqual, int64(1))
			})
		})

		Convey("When requesting an unknown user", func() {
			deps.userErr = fmt.Errorf("%w: ghost: %w", service.ErrUserNotFound, repository.ErrNotFound)
			w := serve(router, http.MethodGet, "/api/users/ghost")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When requesting service stats", func() {
			w := serve(router, http.MethodGet, "/api/stats")

			Convey("Then the stats map is encoded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(gjson.Get(w.Body.String(), "started").Bool(), ShouldBeTrue)
			})
		})

		Convey("When requesting an unknown path", func() {
			w := serve(router, http.MethodGet, "/unknown")

			Convey("Then a JSON not found is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(gjson.Get(w.Body.String(), "code").String(), ShouldEqual, "not_found")
			})
		})

		Convey("When using the wrong method", func() {
			w := serve(router, http.MethodPost, "/api/leaderboard")

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestServer_WithService(t *testing.T) {
	Convey("Given the API over a real service", t, func() {
		store := repository.NewMemoryStore()
		repo := repository.NewPlayerRepository(store, repository.WithLogger(logger.Nop()), repository.WithRetryDelay(0))
		ctx := context.Background()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		for i, name := range []string{"Alice", "bob"} {
			p := model.NewPlayer(name, now.UnixMilli())
			for _, s := range skills.All() {
				p.SetXP(s, skills.XPForLevel(90-i*40))
			}
			So(repo.Save(ctx, p), ShouldBeNil)
		}

		svc := service.New(
			service.WithRepository(repo),
			service.WithLogger(logger.Nop()),
			service.WithClock(func() time.Time { return now }),
		)
		router := api.NewRouter(ctx, api.NewServer(svc, svc, svc.MaxLimit()))

		Convey("When alice is requested", func() {
			w := serve(router, http.MethodGet, "/api/users/alice")

			Convey("Then her live rank and tier are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(gjson.Get(body, "username").String(), ShouldEqual, "Alice")
				So(gjson.Get(body, "rank").Int(), ShouldEqual, int64(1))
				So(gjson.Get(body, "tierInfo.name").String(), ShouldEqual, "Grandmaster")
				So(gjson.Get(body, "combatLevel").Int(), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a missing user is requested", func() {
			w := serve(router, http.MethodGet, "/api/users/nobody")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the leaderboard is requested", func() {
			w := serve(router, http.MethodGet, "/api/leaderboard?limit=1")

			Convey("Then it is limited and carries trend fields", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(gjson.Get(body, "players.#").Int(), ShouldEqual, int64(1))
				So(gjson.Get(body, "totalPlayers").Int(), ShouldEqual, int64(2))
				So(gjson.Get(body, "onTheRise").IsArray(), ShouldBeTrue)
				So(gjson.Get(body, "trendSummary.totalPlayers").Int(), ShouldEqual, int64(2))
			})
		})
	})
}
