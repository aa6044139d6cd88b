package feed

import "math"

// hotPeriodMs is the recency unit for hot scoring: a period-old post with
// 10x the likes ranks with a fresh one.
const hotPeriodMs = 12 * 3600 * 1000

// selfBoostMinutes is how long a viewer's own posts stay boosted, decaying
// linearly from selfBoostMinutes to zero.
const selfBoostMinutes = 60

// threadScorer returns the scoring function for algo. Higher appears first.
func threadScorer(algo SortAlgo) func(Thread) float64 {
	if algo == SortLatest {
		return func(t Thread) float64 {
			return float64(t.Posts[len(t.Posts)-1].TimeMs)
		}
	}
	return scoreHot
}

// scoreHot combines the thread's first and last post so actively-replied old
// threads resurface alongside fresh ones.
func scoreHot(t Thread) float64 {
	return scoreHotPost(t.Posts[0]) + scoreHotPost(t.Posts[len(t.Posts)-1])
}

func scoreHotPost(p Post) float64 {
	logScore := math.Log10(math.Max(float64(p.NLikes), 1))
	ageInPeriods := float64(p.TimeMs) / hotPeriodMs
	return logScore + ageInPeriods
}

// selfBoost promotes a viewer's very recent posts in their own feed, so fresh
// posts show up immediately regardless of score. Zero for other viewers and
// for posts older than selfBoostMinutes.
func selfBoost(t Thread, viewerUID int, nowMs int64) float64 {
	if viewerUID < 0 {
		return 0
	}
	boost := func(p Post) float64 {
		if p.User.UID != viewerUID {
			return 0
		}
		ageMinutes := float64(nowMs-p.TimeMs) / 1000 / 60
		return math.Max(0, selfBoostMinutes-ageMinutes)
	}
	return boost(t.Posts[0]) + boost(t.Posts[len(t.Posts)-1])
}
