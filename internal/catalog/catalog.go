package catalog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/GooferByte/wellness-rewards/internal/pricing"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrInvalidReward = errors.New("invalid reward")
)

// Cadence is the eligibility period of an action's award.
type Cadence string

const CadenceDaily Cadence = "daily"

// Action is a user behaviour that earns coins at most once per cadence period.
type Action struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Points  int64   `json:"points"`
	Cadence Cadence `json:"cadence"`
}

// Reward is a redeemable catalogue entry.
type Reward struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Provider string        `json:"provider"`
	Price    pricing.Price `json:"price"`
}

// Action ids fired by the app's screens.
const (
	ActionLogin               = "login"
	ActionAddTask             = "add_task"
	ActionAddReminder         = "add_reminder"
	ActionCompleteChallenge   = "complete_1_challenge"
	ActionCompleteChallenges3 = "complete_3_challenges"
	ActionSetMoodToday        = "set_mood_today"
)

var defaultActions = []Action{
	{ID: ActionLogin, Label: "Log in", Points: 5, Cadence: CadenceDaily},
	{ID: ActionAddTask, Label: "Add a task", Points: 5, Cadence: CadenceDaily},
	{ID: ActionAddReminder, Label: "Add a reminder", Points: 10, Cadence: CadenceDaily},
	{ID: ActionCompleteChallenge, Label: "Complete 1 challenge", Points: 5, Cadence: CadenceDaily},
	{ID: ActionCompleteChallenges3, Label: "Complete 3 challenges", Points: 10, Cadence: CadenceDaily},
	{ID: ActionSetMoodToday, Label: "Set today's mood", Points: 5, Cadence: CadenceDaily},
}

var defaultRewards = []Reward{
	{ID: "cafe_drip_coffee", Title: "Free drip coffee", Provider: "Campus Cafe", Price: pricing.MustAmount(120)},
	{ID: "juice_bar_smoothie", Title: "50% off any smoothie", Provider: "Juice Bar", Price: pricing.MustAmount(150)},
	{ID: "library_study_room", Title: "2h study room booking", Provider: "Main Library", Price: pricing.MustAmount(200)},
	{ID: "rec_center_day_pass", Title: "Gym day pass", Provider: "Rec Center", Price: pricing.MustAmount(300)},
	{ID: "island_theme_pack", Title: "Island theme pack", Provider: "Wellness Island", Price: pricing.Free()},
}

// ActionCatalog is a read-only registry of earnable actions.
type ActionCatalog struct {
	items []Action
	index map[string]int
}

// NewActionCatalog validates and indexes actions. Order is preserved for listing.
func NewActionCatalog(actions []Action) (*ActionCatalog, error) {
	c := &ActionCatalog{items: slices.Clone(actions), index: make(map[string]int, len(actions))}
	for i, a := range c.items {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: action %d has no id", ErrInvalidAction, i)
		}
		if a.Points <= 0 {
			return nil, fmt.Errorf("%w: action %s must award positive points", ErrInvalidAction, a.ID)
		}
		if a.Cadence == "" {
			c.items[i].Cadence = CadenceDaily
		}
		if _, dup := c.index[a.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate action %s", ErrInvalidAction, a.ID)
		}
		c.index[a.ID] = i
	}
	return c, nil
}

// DefaultActions returns the bundled action catalog.
func DefaultActions() *ActionCatalog {
	c, err := NewActionCatalog(defaultActions)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *ActionCatalog) Lookup(id string) (Action, error) {
	i, ok := c.index[id]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, id)
	}
	return c.items[i], nil
}

func (c *ActionCatalog) All() []Action {
	return slices.Clone(c.items)
}

// RewardCatalog is a read-only registry of redeemable rewards.
type RewardCatalog struct {
	items []Reward
	index map[string]int
}

// NewRewardCatalog validates and indexes rewards. Order is preserved for listing.
func NewRewardCatalog(rewards []Reward) (*RewardCatalog, error) {
	c := &RewardCatalog{items: slices.Clone(rewards), index: make(map[string]int, len(rewards))}
	for i, r := range c.items {
		switch {
		case r.ID == "":
			return nil, fmt.Errorf("%w: reward %d has no id", ErrInvalidReward, i)
		case r.Title == "" || r.Provider == "":
			return nil, fmt.Errorf("%w: reward %s needs a title and a provider", ErrInvalidReward, r.ID)
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate reward %s", ErrInvalidReward, r.ID)
		}
		c.index[r.ID] = i
	}
	return c, nil
}

// DefaultRewards returns the bundled reward catalog.
func DefaultRewards() *RewardCatalog {
	c, err := NewRewardCatalog(defaultRewards)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *RewardCatalog) Lookup(id string) (Reward, error) {
	i, ok := c.index[id]
	if !ok {
		return Reward{}, fmt.Errorf("%w: %q", ErrInvalidReward, id)
	}
	return c.items[i], nil
}

func (c *RewardCatalog) All() []Reward {
	return slices.Clone(c.items)
}
