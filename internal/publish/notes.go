package publish

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"
	"github.com/rs/zerolog"

	"github.com/mrz1836/slipway/internal/domain"
	"github.com/mrz1836/slipway/internal/errors"
)

// issueRefPattern matches issue and pull-request references in commit messages.
var issueRefPattern = regexp.MustCompile(`#(\d+)`)

// Notes is the generated release-notes document for one tag.
type Notes struct {
	// Markdown is the rendered notes body.
	Markdown string

	// PreviousTag is the tag the release range starts after. Empty for the
	// first release.
	PreviousTag string

	// References lists the distinct issue/pull-request numbers mentioned by
	// commits in the release range, ascending.
	References []int
}

// NotesGenerator renders release notes from the commit history between the
// previous release tag and the triggering tag.
type NotesGenerator struct {
	repoPath string
}

// NewNotesGenerator creates a NotesGenerator for the repository at repoPath.
func NewNotesGenerator(repoPath string) *NotesGenerator {
	return &NotesGenerator{repoPath: repoPath}
}

// Generate walks the commits reachable from tag but not from the previous
// release tag, classifies each subject line as a conventional commit where
// possible, and renders a grouped markdown document. Commits that do not
// parse as conventional commits land in an "Other changes" section rather
// than being dropped.
func (g *NotesGenerator) Generate(ctx context.Context, tag domain.Tag) (*Notes, error) {
	logger := zerolog.Ctx(ctx)

	repo, err := git.PlainOpen(g.repoPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open repository %s", g.repoPath)
	}

	head, err := repo.ResolveRevision(plumbing.Revision("refs/tags/" + tag.String()))
	if err != nil {
		return nil, errors.Wrapf(err, "resolve tag %s", tag)
	}

	prevTag, stop, err := previousRelease(repo, tag)
	if err != nil {
		return nil, err
	}

	commits, err := commitRange(repo, *head, stop)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("tag", tag.String()).
		Str("previous", prevTag).
		Int("commits", len(commits)).
		Msg("collected release range")

	notes := &Notes{PreviousTag: prevTag}
	notes.Markdown, notes.References = render(tag, prevTag, commits)
	return notes, nil
}

// previousRelease finds the highest release tag strictly below tag. The
// second return is the commit the log walk stops at, nil when this is the
// first release.
func previousRelease(repo *git.Repository, current domain.Tag) (string, *plumbing.Hash, error) {
	tags, err := repo.Tags()
	if err != nil {
		return "", nil, errors.Wrap(err, "list tags")
	}

	var best string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		parsed, perr := domain.ParseTag(name)
		if perr != nil || parsed == current {
			return nil
		}
		if compareVersions(parsed.Version(), current.Version()) >= 0 {
			return nil
		}
		if best == "" || compareVersions(parsed.Version(), domain.Tag(best).Version()) > 0 {
			best = name
		}
		return nil
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "iterate tags")
	}
	if best == "" {
		return "", nil, nil
	}

	hash, err := repo.ResolveRevision(plumbing.Revision("refs/tags/" + best))
	if err != nil {
		return "", nil, errors.Wrapf(err, "resolve tag %s", best)
	}
	return best, hash, nil
}

// commitRange returns the commits reachable from head, newest first, stopping
// before stop. A nil stop walks the full history.
func commitRange(repo *git.Repository, head plumbing.Hash, stop *plumbing.Hash) ([]*object.Commit, error) {
	iter, err := repo.Log(&git.LogOptions{From: head})
	if err != nil {
		return nil, errors.Wrap(err, "log commits")
	}
	defer iter.Close()

	var commits []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if stop != nil && c.Hash == *stop {
			return storer.ErrStop
		}
		commits = append(commits, c)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk commits")
	}
	return commits, nil
}

// render groups classified commits into sections and collects issue references.
func render(tag domain.Tag, prevTag string, commits []*object.Commit) (string, []int) {
	machine := parser.NewMachine(conventionalcommits.WithTypes(conventionalcommits.TypesConventional))

	var features, fixes, breaking, other []string
	refs := make(map[int]struct{})

	for _, c := range commits {
		subject := firstLine(c.Message)
		for _, m := range issueRefPattern.FindAllStringSubmatch(c.Message, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil {
				refs[n] = struct{}{}
			}
		}

		msg, err := machine.Parse([]byte(subject))
		if err != nil {
			other = append(other, "- "+subject)
			continue
		}
		cc, ok := msg.(*conventionalcommits.ConventionalCommit)
		if !ok {
			other = append(other, "- "+subject)
			continue
		}

		line := "- " + cc.Description
		if cc.Scope != nil {
			line = fmt.Sprintf("- **%s:** %s", *cc.Scope, cc.Description)
		}
		switch {
		case cc.IsBreakingChange():
			breaking = append(breaking, line)
		case cc.Type == "feat":
			features = append(features, line)
		case cc.Type == "fix":
			fixes = append(fixes, line)
		default:
			other = append(other, line)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", tag)
	if prevTag != "" {
		fmt.Fprintf(&b, "\nChanges since %s.\n", prevTag)
	}
	section(&b, "Breaking changes", breaking)
	section(&b, "Features", features)
	section(&b, "Fixes", fixes)
	section(&b, "Other changes", other)

	out := make([]int, 0, len(refs))
	for n := range refs {
		out = append(out, n)
	}
	sort.Ints(out)
	return b.String(), out
}

func section(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// firstLine returns the subject line of a commit message.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// compareVersions orders two bare semantic versions numerically.
func compareVersions(a, b string) int {
	as := strings.SplitN(a, ".", 3)
	bs := strings.SplitN(b, ".", 3)
	for i := 0; i < 3 && i < len(as) && i < len(bs); i++ {
		an, _ := strconv.Atoi(as[i])
		bn, _ := strconv.Atoi(bs[i])
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}
	return 0
}
