package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GooferByte/wellness-rewards/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultActionPoints(t *testing.T) {
	want := map[string]int64{
		"login":                 5,
		"add_task":              5,
		"add_reminder":          10,
		"complete_1_challenge":  5,
		"complete_3_challenges": 10,
		"set_mood_today":        5,
	}
	actions := DefaultActions()
	assert.Len(t, actions.All(), len(want))
	for id, points := range want {
		t.Run(id, func(t *testing.T) {
			a, err := actions.Lookup(id)
			require.NoError(t, err)
			assert.Equal(t, points, a.Points)
			assert.Equal(t, CadenceDaily, a.Cadence)
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := DefaultActions().Lookup("jump")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = DefaultRewards().Lookup("yacht")
	assert.ErrorIs(t, err, ErrInvalidReward)
}

func TestNewActionCatalogValidation(t *testing.T) {
	_, err := NewActionCatalog([]Action{{ID: "a", Points: 0}})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = NewActionCatalog([]Action{{ID: "a", Points: 1}, {ID: "a", Points: 2}})
	assert.ErrorIs(t, err, ErrInvalidAction)

	c, err := NewActionCatalog([]Action{{ID: "walk", Label: "Walk", Points: 3}})
	require.NoError(t, err)
	a, err := c.Lookup("walk")
	require.NoError(t, err)
	assert.Equal(t, CadenceDaily, a.Cadence, "cadence defaults to daily")
}

func TestNewRewardCatalogValidation(t *testing.T) {
	_, err := NewRewardCatalog([]Reward{{ID: "x", Title: "X"}})
	assert.ErrorIs(t, err, ErrInvalidReward)

	_, err = NewRewardCatalog([]Reward{
		{ID: "x", Title: "X", Provider: "P", Price: pricing.Free()},
		{ID: "x", Title: "Y", Provider: "P", Price: pricing.Free()},
	})
	assert.ErrorIs(t, err, ErrInvalidReward)
}

func TestAllReturnsCopy(t *testing.T) {
	c := DefaultRewards()
	all := c.All()
	all[0].Title = "changed"
	r, err := c.Lookup(all[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, "changed", r.Title)
}

func TestParseRewardsFormats(t *testing.T) {
	tests := []struct {
		ext  string
		data string
	}{
		{"toml", `
[[rewards]]
id = "gym"
title = "Gym day pass"
provider = "Rec Center"
price = 300

[[rewards]]
id = "theme"
title = "Theme pack"
provider = "Wellness Island"
price = "Free"
`},
		{".yaml", `
rewards:
  - id: gym
    title: Gym day pass
    provider: Rec Center
    price: 300
  - id: theme
    title: Theme pack
    provider: Wellness Island
    price: Free
`},
		{"json", `{"rewards":[
  {"id":"gym","title":"Gym day pass","provider":"Rec Center","price":300},
  {"id":"theme","title":"Theme pack","provider":"Wellness Island","price":"Free"}
]}`},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			c, err := ParseRewards(tt.ext, []byte(tt.data))
			require.NoError(t, err)

			gym, err := c.Lookup("gym")
			require.NoError(t, err)
			assert.Equal(t, int64(300), gym.Price.Coins())
			assert.Equal(t, "Rec Center", gym.Provider)

			theme, err := c.Lookup("theme")
			require.NoError(t, err)
			assert.True(t, theme.Price.IsFree())

			assert.Equal(t, []string{"gym", "theme"}, []string{c.All()[0].ID, c.All()[1].ID})
		})
	}
}

func TestParseRewardsErrors(t *testing.T) {
	_, err := ParseRewards("ini", []byte("x"))
	assert.Error(t, err)

	_, err = ParseRewards("json", []byte(`{"rewards":[]}`))
	assert.ErrorIs(t, err, ErrInvalidReward)

	_, err = ParseRewards("json", []byte(`{"rewards":[{"id":"a","title":"A","provider":"P","price":0}]}`))
	assert.ErrorIs(t, err, ErrInvalidReward)

	_, err = ParseRewards("json", []byte(`{"rewards":[{"id":"a","title":"A","provider":"P"}]}`))
	assert.ErrorIs(t, err, ErrInvalidReward)
}

func TestLoadRewardsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewards.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[rewards]]
id = "coffee"
title = "Coffee"
provider = "Cafe"
price = 120
`), 0o600))

	c, err := LoadRewards(path)
	require.NoError(t, err)
	r, err := c.Lookup("coffee")
	require.NoError(t, err)
	assert.Equal(t, int64(120), r.Price.Coins())

	_, err = LoadRewards(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
