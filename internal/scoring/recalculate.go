package scoring

import "github.com/stayscore/stayscore/internal/model"

// Change records how one category moved during a recalculation.
type Change struct {
	Category string `json:"category"`
	OldScore int    `json:"old_score"`
	NewScore int    `json:"new_score"`
	Delta    int    `json:"delta"`
}

// Recalculate rescores a stored result from its raw payload under the current
// algorithm version. The prior recommendation list is carried over unchanged;
// regenerating recommendations from the new scores is intentionally not done
// here so human-curated findings are never discarded. The returned change list
// covers categories whose score moved, plus the overall score when it changed.
func Recalculate(prev *model.AuditResult) (*model.AuditResult, []Change) {
	var raw *model.RawResult
	if prev != nil {
		raw = prev.Raw
	}

	next := Score(raw)
	if prev != nil {
		next.Recommendations = prev.Recommendations
	}

	var changes []Change
	if prev == nil {
		return next, changes
	}
	for _, nc := range next.Categories {
		if oc := prev.Category(nc.Name); oc != nil && oc.Score != nc.Score {
			changes = append(changes, Change{
				Category: nc.Name,
				OldScore: oc.Score,
				NewScore: nc.Score,
				Delta:    nc.Score - oc.Score,
			})
		}
	}
	if prev.OverallScore != next.OverallScore {
		changes = append(changes, Change{
			Category: "Overall",
			OldScore: prev.OverallScore,
			NewScore: next.OverallScore,
			Delta:    next.OverallScore - prev.OverallScore,
		})
	}
	return next, changes
}
