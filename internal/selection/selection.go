// Package selection resolves which release and which asset to install.
//
// Both decisions follow one rule: an explicit identifier must match exactly
// (no partial or fuzzy matching); without one, a Chooser picks from the full
// list with index 0, the most recent entry, as the default.
package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/github"
)

// ErrAmbiguousSelection is returned by StrictChooser when more than one
// option is available and nothing was specified.
var ErrAmbiguousSelection = errors.New("selection required: more than one option available")

// Chooser picks one option. def is the index offered as the default.
type Chooser interface {
	Choose(ctx context.Context, prompt string, options []string, def int) (int, error)
}

// ChooserFunc adapts a function to the Chooser interface.
type ChooserFunc func(ctx context.Context, prompt string, options []string, def int) (int, error)

// Choose calls f.
func (f ChooserFunc) Choose(ctx context.Context, prompt string, options []string, def int) (int, error) {
	return f(ctx, prompt, options, def)
}

// FirstChooser always accepts the default.
type FirstChooser struct{}

// Choose returns def.
func (FirstChooser) Choose(ctx context.Context, prompt string, options []string, def int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return def, nil
}

// StrictChooser accepts the only option and refuses to guess otherwise.
type StrictChooser struct{}

// Choose returns 0 for a single option and ErrAmbiguousSelection otherwise.
func (StrictChooser) Choose(ctx context.Context, prompt string, options []string, def int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(options) == 1 {
		return 0, nil
	}
	return 0, fmt.Errorf("%s: %w (%s)", prompt, ErrAmbiguousSelection, strings.Join(options, ", "))
}

// SelectRelease picks a release by exact tag, or through chooser when
// version is empty.
func SelectRelease(ctx context.Context, chooser Chooser, releases []github.Release, version string) (*github.Release, error) {
	if len(releases) == 0 {
		return nil, errs.ErrNoReleases
	}

	tags := make([]string, len(releases))
	for i, r := range releases {
		tags[i] = r.TagName
	}

	idx, err := resolve(ctx, chooser, "Select version", tags, version, errs.ErrVersionNotFound)
	if err != nil {
		return nil, err
	}
	return &releases[idx], nil
}

// SelectAsset picks an asset of release by exact name, or through chooser
// when name is empty.
func SelectAsset(ctx context.Context, chooser Chooser, release *github.Release, name string) (*github.Asset, error) {
	if len(release.Assets) == 0 {
		return nil, fmt.Errorf("%w: release %s has no assets", errs.ErrAssetNotFound, release.TagName)
	}

	idx, err := resolve(ctx, chooser, "Select asset", release.AssetNames(), name, errs.ErrAssetNotFound)
	if err != nil {
		return nil, err
	}
	return &release.Assets[idx], nil
}

func resolve(ctx context.Context, chooser Chooser, prompt string, options []string, want string, notFound error) (int, error) {
	if want != "" {
		for i, o := range options {
			if o == want {
				return i, nil
			}
		}
		return 0, &NotFoundError{Kind: notFound, Requested: want, Suggestions: Suggest(want, options)}
	}

	if chooser == nil {
		chooser = StrictChooser{}
	}
	idx, err := chooser.Choose(ctx, prompt, options, 0)
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(options) {
		return 0, fmt.Errorf("chooser returned index %d for %d options", idx, len(options))
	}
	return idx, nil
}

// NotFoundError reports an explicit identifier with no exact match.
type NotFoundError struct {
	Kind        error
	Requested   string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Kind, e.Requested)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *NotFoundError) Unwrap() error {
	return e.Kind
}

// maxSuggestions caps the "did you mean" list.
const maxSuggestions = 3

// Suggest returns up to three options that fuzzily resemble want. It only
// feeds error messages; matching stays exact.
func Suggest(want string, options []string) []string {
	matches := fuzzy.Find(want, options)
	var out []string
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
