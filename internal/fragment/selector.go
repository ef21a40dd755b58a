package fragment

import "time"

// LatestExtraction isolates the fragments belonging to the most recent
// extraction attempt on a page and returns them normalized. Pure domain
// logic - no I/O, no side effects.
//
// Fragments are grouped by extraction request id; the group whose maximum
// created_at is largest wins. A zero created_at acts as a minimum sentinel
// and can never promote a group. When two groups share the same maximum
// timestamp the lexicographically greatest request id wins, so re-runs with
// later-sorting ids take precedence deterministically (the alternative -
// whichever group happens to be visited first - would depend on map order).
//
// Fragments without a request id are excluded from grouping. If no fragment
// carries one, the entire input is returned with an empty RequestID.
func LatestExtraction(fragments []Fragment) Selection {
	groups := make(map[string][]Fragment)
	for _, f := range fragments {
		if f.ExtractionRequestID == "" {
			continue
		}
		groups[f.ExtractionRequestID] = append(groups[f.ExtractionRequestID], f)
	}

	if len(groups) == 0 {
		return Selection{Fragments: Normalize(fragments)}
	}

	var selected string
	var selectedMax time.Time
	for requestID, group := range groups {
		groupMax := maxCreatedAt(group)
		switch {
		case selected == "",
			groupMax.After(selectedMax),
			groupMax.Equal(selectedMax) && requestID > selected:
			selected = requestID
			selectedMax = groupMax
		}
	}

	return Selection{
		RequestID: selected,
		Fragments: Normalize(groups[selected]),
	}
}

func maxCreatedAt(group []Fragment) time.Time {
	var max time.Time
	for _, f := range group {
		if f.CreatedAt.After(max) {
			max = f.CreatedAt
		}
	}
	return max
}
