// Package landmark orders action landmarks by where they first occur in a
// reference plan.
package landmark

import (
	"fmt"
	"sort"
	"strings"

	"plansynth/internal/logging"
	"plansynth/internal/types"
)

// Order returns landmarks sorted by the offset of their first occurrence in
// the canonical text of plan. Landmarks are canonicalized first, so
// "(PICKUP  b1)" matches a plan line "(pickup b1)". The sort is stable:
// repeated landmarks keep their input order.
func Order(landmarks []string, plan types.Plan) ([]string, error) {
	text := plan.String()

	type keyed struct {
		landmark string
		offset   int
	}
	keys := make([]keyed, 0, len(landmarks))
	for _, l := range landmarks {
		a, err := types.ParseAction(l)
		if err != nil {
			return nil, fmt.Errorf("landmark %q: %w", l, err)
		}
		canon := a.String()
		offset := strings.Index(text, canon)
		if offset < 0 {
			return nil, &types.LandmarkNotFoundError{Landmark: canon}
		}
		keys = append(keys, keyed{landmark: canon, offset: offset})
	}

	sort.SliceStable(keys, func(i, j int) bool { return keys[i].offset < keys[j].offset })

	ordered := make([]string, len(keys))
	for i, k := range keys {
		ordered[i] = k.landmark
	}
	logging.LandmarkDebug("ordered %d landmarks against a %d-action plan", len(ordered), len(plan))
	return ordered, nil
}

// ExtractSet returns the trimmed, non-empty lines between <tag> and </tag>
// in content. Tags are matched on their own, so "<plan>" inside a longer
// line still opens the block, as do the common landmark tags
// "landmarks-set" and "action-landmarks-set".
func ExtractSet(content, tag string) ([]string, error) {
	open, closing := "<"+tag+">", "</"+tag+">"
	start := strings.Index(content, open)
	if start < 0 {
		return nil, &types.ParseError{Msg: fmt.Sprintf("missing %s marker", open)}
	}
	body := content[start+len(open):]
	end := strings.Index(body, closing)
	if end < 0 {
		return nil, &types.ParseError{Msg: fmt.Sprintf("missing %s marker after %s", closing, open)}
	}

	var lines []string
	for _, line := range strings.Split(body[:end], "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// ParseLandmarks is ExtractSet followed by canonicalization of each line.
func ParseLandmarks(content, tag string) ([]string, error) {
	lines, err := ExtractSet(content, tag)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		a, err := types.ParseAction(l)
		if err != nil {
			return nil, fmt.Errorf("landmark %q: %w", l, err)
		}
		out = append(out, a.String())
	}
	return out, nil
}
