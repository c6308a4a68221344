package commands

import (
	"context"
	"time"

	"github.com/robalyx/imagegate/internal/review"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// CaseCommands returns review queue maintenance commands.
func CaseCommands(deps *CLIDependencies, reviews *review.Manager) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "list-cases",
			Usage: "List open review cases, oldest first",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum number of cases to list",
					Value: 50,
				},
			},
			Action: handleListCases(deps, reviews),
		},
		{
			Name:      "release-claim",
			Usage:     "Force-release the moderator lock on a case",
			ArgsUsage: "CASE_ID",
			Action:    handleReleaseClaim(deps, reviews),
		},
		{
			Name:      "user-state",
			Usage:     "Show a user's review standing",
			ArgsUsage: "USER_ID",
			Action:    handleUserState(deps, reviews),
		},
		{
			Name:      "clear-cooldown",
			Usage:     "Lift a user's cooldown and reset false appeals",
			ArgsUsage: "USER_ID",
			Action:    handleClearCooldown(deps, reviews),
		},
	}
}

// handleListCases handles the 'list-cases' command.
func handleListCases(deps *CLIDependencies, reviews *review.Manager) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cases, err := reviews.ListOpenCases(ctx, max(int(c.Int("limit")), 1))
		if err != nil {
			return err
		}

		for _, rc := range cases {
			deps.Logger.Info("Open case",
				zap.String("id", rc.ID),
				zap.String("userID", rc.UserID),
				zap.String("type", string(rc.CaseType)),
				zap.Int("uploads", len(rc.LinkedUploadIDs)),
				zap.String("claimedBy", rc.ClaimHolder(time.Now())),
				zap.Time("createdAt", rc.CreatedAt))
		}

		deps.Logger.Info("Listed open cases", zap.Int("count", len(cases)))
		return nil
	}
}

// handleReleaseClaim handles the 'release-claim' command.
func handleReleaseClaim(deps *CLIDependencies, reviews *review.Manager) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrCaseRequired
		}

		rc, err := reviews.GetCase(ctx, c.Args().First())
		if err != nil {
			return err
		}
		if rc.ClaimedBy == "" {
			deps.Logger.Info("Case is not claimed", zap.String("id", rc.ID))
			return nil
		}

		if err := reviews.Release(ctx, rc.ID, rc.ClaimedBy); err != nil {
			return err
		}

		deps.Logger.Info("Released claim",
			zap.String("id", rc.ID),
			zap.String("moderatorID", rc.ClaimedBy))
		return nil
	}
}

// handleUserState handles the 'user-state' command.
func handleUserState(deps *CLIDependencies, reviews *review.Manager) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrUserRequired
		}

		state, err := reviews.GetUserState(ctx, c.Args().First())
		if err != nil {
			return err
		}

		deps.Logger.Info("User state",
			zap.String("userID", state.UserID),
			zap.Int("openReviewCount", state.OpenReviewCount),
			zap.Int("falseAppealCount", state.FalseAppealCount),
			zap.Int("reviewRightsLevel", state.ReviewRightsLevel),
			zap.Time("cooldownUntil", state.CooldownUntil))
		return nil
	}
}

// handleClearCooldown handles the 'clear-cooldown' command.
func handleClearCooldown(_ *CLIDependencies, reviews *review.Manager) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrUserRequired
		}

		_, err := reviews.ClearCooldown(ctx, c.Args().First())
		return err
	}
}
