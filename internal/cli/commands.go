package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/GooferByte/wellness-rewards/internal/models"
	"github.com/spf13/cobra"
)

func balanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show coins, today's earnings and which actions are done today",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			state := a.engine.Ledger.State()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Coins:         %d\n", state.CoinsTotal)
			fmt.Fprintf(out, "Earned today:  %d\n", state.TodayEarned)
			fmt.Fprintf(out, "Redeems today: %d\n", a.engine.Vouchers.TodayRedeems())

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\nACTION\tDONE TODAY")
			for _, action := range a.engine.Actions.All() {
				fmt.Fprintf(w, "%s\t%s\n", action.ID, yesNo(state.AwardedToday[action.ID]))
			}
			return w.Flush()
		}),
	}
}

func actionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List earnable actions",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tPOINTS")
			for _, action := range a.engine.Actions.All() {
				fmt.Fprintf(w, "%s\t%s\t%d\n", action.ID, action.Label, action.Points)
			}
			return w.Flush()
		}),
	}
}

func rewardsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rewards",
		Short: "List the reward catalog",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPROVIDER\tPRICE")
			for _, r := range a.engine.Rewards.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Title, r.Provider, r.Price)
			}
			return w.Flush()
		}),
	}
}

func awardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "award ACTION_ID",
		Short: "Award coins for an action, at most once per day",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			res, err := a.engine.Ledger.Award(a.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			if !res.Awarded {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already awarded today. Balance: %d\n", res.ActionID, res.State.CoinsTotal)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "+%d coins for %s. Balance: %d\n", res.Points, res.ActionID, res.State.CoinsTotal)
			return nil
		}),
	}
}

func redeemCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem REWARD_ID",
		Short: "Spend coins on a reward and receive a voucher",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			v, err := a.engine.Ledger.Redeem(a.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Voucher %s: %s (%s), price %s. Balance: %d\n",
				v.ID, v.Title, v.Provider, v.PriceAtIssue, a.engine.Ledger.CurrentBalance())
			return nil
		}),
	}
}

func vouchersCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "vouchers",
		Short: "List active vouchers",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			vouchers := a.engine.Vouchers.Active()
			if all {
				vouchers = a.engine.Vouchers.List()
			}
			if len(vouchers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No vouchers.")
				return nil
			}
			return printVouchers(cmd, vouchers)
		}),
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include used vouchers")
	return cmd
}

func useCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use VOUCHER_ID",
		Short: "Mark a voucher as used",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			v, err := a.engine.Vouchers.MarkUsed(a.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Voucher %s used.\n", v.ID)
			return nil
		}),
	}
}

func challengeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "challenge CHALLENGE_ID",
		Short: "Record a completed challenge for today",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			res, err := a.engine.Challenges.Complete(a.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Challenges today: %s\n", strings.Join(res.Today, ", "))
			for _, id := range res.Awarded {
				fmt.Fprintf(out, "Unlocked %s.\n", id)
			}
			fmt.Fprintf(out, "Balance: %d\n", res.State.CoinsTotal)
			return nil
		}),
	}
}

func printVouchers(cmd *cobra.Command, vouchers []models.Voucher) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPROVIDER\tPRICE\tISSUED\tUSED")
	for _, v := range vouchers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Title, v.Provider, v.PriceAtIssue, v.IssuedAt.Local().Format("2006-01-02 15:04"), yesNo(v.Used))
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
