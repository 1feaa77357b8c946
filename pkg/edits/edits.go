// Package edits implements the ordered, tag-gated text transformations
// applied to fetched content. The edit kinds are a closed set: new kinds
// are deliberate additions with exhaustive handling, not plugins.
package edits

import (
	"strings"
	"unicode/utf8"

	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/tags"
	"github.com/arthur-debert/refold/pkg/variables"
)

// Edit is one text transformation. Implementations are value types;
// WithVariables and Retagged return rewritten copies.
type Edit interface {
	// Tags returns the tag set gating this edit.
	Tags() []string
	// Apply transforms the document text.
	Apply(text string) (string, error)
	// RequiredVariables lists the {{name}} placeholders in text fields.
	RequiredVariables() []string
	// WithVariables returns a copy with all placeholders substituted.
	WithVariables(vars map[string]string) (Edit, error)
	// Retagged returns a copy carrying the given tags instead of its own.
	Retagged(tags []string) Edit
}

// Replace substitutes every occurrence of From with To. If Required is
// set and From does not occur, the edit fails.
type Replace struct {
	From     string
	To       string
	Required bool
	TagSet   []string
}

func (r Replace) Tags() []string { return r.TagSet }

func (r Replace) Apply(text string) (string, error) {
	if r.Required && !strings.Contains(text, r.From) {
		return "", errors.Newf(errors.ErrEdit,
			"replacement of %q was required but the text does not contain it", r.From)
	}
	return strings.ReplaceAll(text, r.From, r.To), nil
}

func (r Replace) RequiredVariables() []string {
	return tags.Union(variables.Names(r.From), variables.Names(r.To))
}

func (r Replace) WithVariables(vars map[string]string) (Edit, error) {
	from, err := variables.Expand(r.From, vars)
	if err != nil {
		return nil, err
	}
	to, err := variables.Expand(r.To, vars)
	if err != nil {
		return nil, err
	}
	return Replace{From: from, To: to, Required: r.Required, TagSet: r.TagSet}, nil
}

func (r Replace) Retagged(t []string) Edit {
	return Replace{From: r.From, To: r.To, Required: r.Required, TagSet: t}
}

// InsertMode says where an Insert places its content.
type InsertMode int

const (
	Append InsertMode = iota
	Prepend
	AtLine
)

// Insert adds Content as a new line. With AtLine, the content becomes
// line Line (1-indexed) and subsequent lines shift down; inserting past
// the end of the document fails.
type Insert struct {
	Content string
	Mode    InsertMode
	Line    int
	TagSet  []string
}

func (i Insert) Tags() []string { return i.TagSet }

func (i Insert) Apply(text string) (string, error) {
	lines, trailingNewline := splitLines(text)
	switch i.Mode {
	case Append:
		lines = append(lines, i.Content)
	case Prepend:
		lines = append([]string{i.Content}, lines...)
	case AtLine:
		if i.Line < 1 || i.Line > len(lines) {
			return "", errors.Newf(errors.ErrEdit,
				"cannot insert at line %d of a %d-line document", i.Line, len(lines))
		}
		lines = append(lines[:i.Line-1], append([]string{i.Content}, lines[i.Line-1:]...)...)
	}
	return joinLines(lines, trailingNewline), nil
}

func (i Insert) RequiredVariables() []string {
	return variables.Names(i.Content)
}

func (i Insert) WithVariables(vars map[string]string) (Edit, error) {
	content, err := variables.Expand(i.Content, vars)
	if err != nil {
		return nil, err
	}
	return Insert{Content: content, Mode: i.Mode, Line: i.Line, TagSet: i.TagSet}, nil
}

func (i Insert) Retagged(t []string) Edit {
	return Insert{Content: i.Content, Mode: i.Mode, Line: i.Line, TagSet: t}
}

// Delete removes the inclusive, 1-indexed line range [Start, End].
type Delete struct {
	Start  int
	End    int
	TagSet []string
}

func (d Delete) Tags() []string { return d.TagSet }

func (d Delete) Apply(text string) (string, error) {
	lines, trailingNewline := splitLines(text)
	if d.Start < 1 || d.End < 1 || d.Start > d.End || d.End > len(lines) {
		return "", errors.Newf(errors.ErrEdit,
			"cannot delete lines %d-%d of a %d-line document", d.Start, d.End, len(lines))
	}
	lines = append(lines[:d.Start-1], lines[d.End:]...)
	return joinLines(lines, trailingNewline), nil
}

func (d Delete) RequiredVariables() []string { return nil }

func (d Delete) WithVariables(vars map[string]string) (Edit, error) { return d, nil }

func (d Delete) Retagged(t []string) Edit {
	return Delete{Start: d.Start, End: d.End, TagSet: t}
}

// Apply runs the edit pipeline over content. Edits apply sequentially in
// declared order; each edit is independently gated by its own tag set.
// Content with any edits attached must be valid UTF-8.
func Apply(edits []Edit, active []string, content []byte) ([]byte, error) {
	if len(edits) == 0 {
		return content, nil
	}
	if !utf8.Valid(content) {
		return nil, errors.New(errors.ErrEdit,
			"cannot edit content that is not valid UTF-8")
	}
	text := string(content)
	for _, edit := range edits {
		if !tags.IsActive(edit.Tags(), active) {
			continue
		}
		edited, err := edit.Apply(text)
		if err != nil {
			return nil, err
		}
		text = edited
	}
	return []byte(text), nil
}

// IncludeEdits bakes inclusion re-tagging into an edit list: each edit's
// activation is evaluated once against the inclusion's tags, inactive
// edits are dropped, and surviving edits carry the inclusion's tags so
// the parent gates them together with the included file.
func IncludeEdits(list []Edit, inclusionTags []string) []Edit {
	var included []Edit
	for _, edit := range list {
		if !tags.IsActive(edit.Tags(), inclusionTags) {
			continue
		}
		included = append(included, edit.Retagged(inclusionTags))
	}
	return included
}

// RequiredVariables collects the placeholders of every edit in the list.
func RequiredVariables(list []Edit) []string {
	var all [][]string
	for _, edit := range list {
		all = append(all, edit.RequiredVariables())
	}
	return tags.Union(all...)
}

// WithVariables substitutes placeholders across every edit in the list.
func WithVariables(list []Edit, vars map[string]string) ([]Edit, error) {
	if list == nil {
		return nil, nil
	}
	expanded := make([]Edit, 0, len(list))
	for _, edit := range list {
		e, err := edit.WithVariables(vars)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, e)
	}
	return expanded, nil
}

func splitLines(text string) (lines []string, trailingNewline bool) {
	trailingNewline = strings.HasSuffix(text, "\n")
	body := strings.TrimSuffix(text, "\n")
	return strings.Split(body, "\n"), trailingNewline
}

func joinLines(lines []string, trailingNewline bool) string {
	joined := strings.Join(lines, "\n")
	if trailingNewline {
		joined += "\n"
	}
	return joined
}
