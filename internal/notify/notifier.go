// Package notify posts best-effort release comments on the issues and pull
// requests referenced by commits in the release range.
//
// Notification failures never invalidate a release. The pipeline records them
// and moves on; an operator who cares can re-run the comments by hand.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/slipway/internal/command"
	"github.com/mrz1836/slipway/internal/constants"
	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
)

// Notifier posts release comments through the gh CLI.
type Notifier struct {
	runner  command.Runner
	creds   domain.Credentials
	timeout time.Duration
}

// NewNotifier creates a Notifier. Returns ErrMissingCredential when no
// release-host token is available.
func NewNotifier(runner command.Runner, creds domain.Credentials, timeout time.Duration) (*Notifier, error) {
	if err := creds.RequireRelease(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = constants.DefaultNotifyTimeout
	}
	return &Notifier{runner: runner, creds: creds, timeout: timeout}, nil
}

// Announce comments on every referenced issue or pull request that tag has
// shipped. Each comment gets its own timeout so one hung call cannot eat the
// whole notification window. Failures are counted, logged, and folded into a
// single ErrNotification; callers treat that error as informational.
func (n *Notifier) Announce(ctx context.Context, tag domain.Tag, references []int) error {
	logger := zerolog.Ctx(ctx)

	body := fmt.Sprintf(":package: This change shipped in [%s](../releases/tag/%s).", tag, tag)
	failed := 0
	for _, ref := range references {
		if err := n.comment(ctx, ref, body); err != nil {
			failed++
			logger.Warn().
				Int("reference", ref).
				Err(err).
				Msg("notification comment failed")
			continue
		}
		logger.Info().
			Int("reference", ref).
			Str("tag", tag.String()).
			Msg("posted release comment")
	}

	if failed > 0 {
		return errors.Wrapf(errors.ErrNotification, "%d of %d comments failed", failed, len(references))
	}
	return nil
}

func (n *Notifier) comment(ctx context.Context, ref int, body string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	_, err := n.runner.Run(ctx, command.Spec{
		Name: "gh",
		Args: []string{"issue", "comment", strconv.Itoa(ref), "--body", body},
		Env:  []string{fmt.Sprintf("%s=%s", constants.EnvReleaseToken, n.creds.ReleaseToken)},
	})
	return err
}
