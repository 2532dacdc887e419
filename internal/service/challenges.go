package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/GooferByte/wellness-rewards/internal/catalog"
	"github.com/GooferByte/wellness-rewards/internal/metrics"
	"github.com/GooferByte/wellness-rewards/internal/models"
	"github.com/sirupsen/logrus"
)

// challengeThresholds maps how many challenges must be finished in a day to the action they unlock.
var challengeThresholds = []struct {
	count  int
	action string
}{
	{1, catalog.ActionCompleteChallenge},
	{3, catalog.ActionCompleteChallenges3},
}

// ChallengeResult reports today's completions and the awards a completion unlocked.
type ChallengeResult struct {
	Today   []string   `json:"today"`
	Awarded []string   `json:"awarded"`
	State   LedgerView `json:"state"`
}

// ChallengeTracker records daily challenge completions from the Challenge Gym and
// turns the daily count into challenge awards.
type ChallengeTracker struct {
	w       *writer
	ledger  *RewardLedger
	actions *catalog.ActionCatalog
	now     func() time.Time
	logger  *logrus.Entry
	metrics *metrics.Recorder
}

// Today returns the challenges completed on the current calendar date.
func (c *ChallengeTracker) Today() []string {
	return slices.Clone(c.w.snapshot().Challenges.On(models.DayKey(c.now())))
}

// Complete records challengeID as done today and, in the same write, grants the
// threshold awards the new count reaches. Completing a challenge twice in a day
// counts once.
func (c *ChallengeTracker) Complete(ctx context.Context, challengeID string) (ChallengeResult, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return ChallengeResult{}, fmt.Errorf("%w: challenge id is required", ErrInvalidChallenge)
	}
	res, err := do(ctx, c.w, "complete_challenge", func(draft *models.Record, now time.Time) (ChallengeResult, bool, error) {
		day := models.DayKey(now)
		changed := false
		if draft.Challenges.Date != day {
			draft.Challenges = models.ChallengeDay{Date: day}
		}
		if !slices.Contains(draft.Challenges.Items, challengeID) {
			draft.Challenges.Items = append(draft.Challenges.Items, challengeID)
			changed = true
		}

		out := ChallengeResult{Today: slices.Clone(draft.Challenges.Items), Awarded: []string{}}
		for _, th := range challengeThresholds {
			if len(draft.Challenges.Items) < th.count {
				continue
			}
			action, err := c.actions.Lookup(th.action)
			if err != nil {
				continue
			}
			granted, err := grant(&draft.Ledger, action.ID, action.Points, day)
			if err != nil {
				return ChallengeResult{}, false, err
			}
			if granted {
				out.Awarded = append(out.Awarded, action.ID)
				changed = true
			}
		}
		out.State = c.ledger.viewOf(draft, day)
		return out, changed, nil
	})
	if err != nil {
		return ChallengeResult{}, err
	}
	for _, id := range res.Awarded {
		c.metrics.Award(id, metrics.OutcomeGranted)
	}
	c.logger.WithFields(logrus.Fields{
		"challenge": challengeID,
		"today":     len(res.Today),
		"awarded":   res.Awarded,
	}).Info("challenge completed")
	return res, nil
}
