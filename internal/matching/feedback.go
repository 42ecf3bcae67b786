package matching

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// processFeedback walks the unprocessed prefix of the feedback queue (spec
// §4.1 step 1, "process feedback queue up to processFeedbackLimit entries")
// and applies each entry's effects to the rater and ratee, in FIFO order,
// up to opts.ProcessFeedbackLimit entries. Returns the number processed.
func processFeedback(state *EngineState, idx map[int]int, opts EngineOptions) int {
	limit := opts.ProcessFeedbackLimit
	if limit <= 0 {
		limit = 50
	}
	processed := 0
	for i := range state.FeedbackQueue {
		if processed >= limit {
			break
		}
		entry := &state.FeedbackQueue[i]
		if entry.Processed {
			continue
		}
		applyFeedbackEntry(state, idx, entry, opts.Now)
		processed++
	}
	return processed
}

// applyFeedbackEntry implements the nine steps of spec §4.8 for one entry,
// using the exact formulas the spec fixes so two implementations (and two
// runs over the same queue, spec P2) behave identically.
func applyFeedbackEntry(state *EngineState, idx map[int]int, entry *FeedbackEntry, now time.Time) {
	// Step 1: resolve rater/ratee; an unknown persona on either side marks
	// the entry processed without side effects (spec §7 "Fatal" handling:
	// never aborts, just skips this entry with a warning).
	raterIdx, raterOK := idx[entry.FromPersonaID]
	rateeIdx, rateeOK := idx[entry.ToPersonaID]
	if !raterOK || !rateeOK {
		entry.Processed = true
		entry.ProcessedAt = &now
		return
	}
	rater := &state.Personas[raterIdx]
	ratee := &state.Personas[rateeIdx]

	// Step 2: biasWeight ∈ [0.6, 1.2].
	bias := rater.FeedbackBias
	biasWeight := clamp(1-0.5*math.Abs(bias.HarshnessScore-0.5)-0.5*math.Abs(bias.PositivityBias-0.5), 0.6, 1.2)

	// Step 3: adjusted rating and derived sentiment.
	rating := float64(entry.Rating)
	adjustedRating := clamp(rating+(bias.HarshnessScore-0.5)*0.9-(bias.PositivityBias-0.5)*0.9, 1, 5)
	effectiveSentiment := sentimentFromRating(adjustedRating)

	// Step 4: ratee's feedback summary rollup.
	summary := &ratee.Profile.FeedbackSummary
	applyFeedbackSummary(summary, effectiveSentiment, biasWeight)
	for _, issue := range entry.Issues {
		summary.IssueTags = appendUnique(summary.IssueTags, issue.Code)
		if issue.RedFlag {
			summary.RedFlagTags = appendUnique(summary.RedFlagTags, issue.Code)
		}
	}
	for _, rf := range entry.RedFlags {
		summary.RedFlagTags = appendUnique(summary.RedFlagTags, rf)
	}

	// Step 5: ratee's reliability delta.
	baseDelta := baseReliabilityDelta(rating)
	issueDelta, matched := applyIssueDeltas(ratee, entry.Issues)
	totalDelta := (baseDelta + issueDelta) * biasWeight
	ratee.Reliability.Score = clamp(ratee.Reliability.Score+totalDelta, 0, 1)
	ratee.Reliability.History = append(ratee.Reliability.History, ReliabilityEvent{
		Type:      reliabilityEventType(matched, totalDelta),
		Impact:    totalDelta,
		CreatedAt: now,
	})

	// Step 6: one feedback_issue:<code> fact per issue, one
	// feedback_red_flag:<flag> fact per red flag, confidence rating/5.
	confidence := clamp(rating/5, 0, 1)
	for _, issue := range entry.Issues {
		ratee.Facts = append(ratee.Facts, Fact{
			Key:        "feedback_issue:" + issue.Code,
			Value:      issue.Code,
			Confidence: confidence,
			Status:     FactActive,
			CreatedAt:  now,
		})
	}
	for _, rf := range entry.RedFlags {
		ratee.Facts = append(ratee.Facts, Fact{
			Key:        "feedback_red_flag:" + rf,
			Value:      rf,
			Confidence: confidence,
			Status:     FactActive,
			CreatedAt:  now,
		})
	}

	// Step 7: ghost reverse-boost. Filing an accurate ghost/no_show report
	// is itself a positive reliability signal for the rater, and raises
	// the floor they'll accept in future candidate pools.
	if matched.ghost || matched.noShow {
		rater.Reliability.Score = clamp(rater.Reliability.Score+0.05*biasWeight, 0, 1)
		newFloor := clamp(rater.Reliability.Score+0.15, 0, 0.85)
		current := 0.0
		if rater.MatchPreferences.ReliabilityMinScore != nil {
			current = *rater.MatchPreferences.ReliabilityMinScore
		}
		floor := math.Max(current, newFloor)
		rater.MatchPreferences.ReliabilityMinScore = &floor
		rater.Facts = append(rater.Facts, Fact{
			Key:        "feedback_experience:ghosted",
			Value:      fmt.Sprintf("persona_%d", entry.ToPersonaID),
			Confidence: 1,
			Status:     FactActive,
			CreatedAt:  now,
		})
	}

	// Step 8: recompute the rater's own bias statistics.
	recomputeRaterBias(rater, entry, rating)

	ratee.touch(now)
	rater.touch(now)

	// Step 9: mark processed exactly once (spec invariant, §3 FeedbackEntry).
	entry.Processed = true
	entry.ProcessedAt = &now
}

func sentimentFromRating(adjustedRating float64) Sentiment {
	switch {
	case adjustedRating >= 4:
		return SentimentPositive
	case adjustedRating <= 2:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// applyFeedbackSummary folds one entry into the running, bias-weighted
// sentiment mean and bumps the matching count (spec §4.8 step 4).
func applyFeedbackSummary(summary *FeedbackSummary, sentiment Sentiment, biasWeight float64) {
	total := summary.PositiveCount + summary.NeutralCount + summary.NegativeCount
	value := sentimentValue(sentiment)
	summary.SentimentScore = (summary.SentimentScore*float64(total) + value*biasWeight) / float64(total+1)
	switch sentiment {
	case SentimentPositive:
		summary.PositiveCount++
	case SentimentNeutral:
		summary.NeutralCount++
	case SentimentNegative:
		summary.NegativeCount++
	}
}

func sentimentValue(s Sentiment) float64 {
	switch s {
	case SentimentPositive:
		return 1
	case SentimentNegative:
		return -1
	default:
		return 0
	}
}

// baseReliabilityDelta is the rating-only contribution of spec §4.8 step 5.
func baseReliabilityDelta(rating float64) float64 {
	switch {
	case rating >= 5:
		return 0.08
	case rating >= 4:
		return 0.04
	case rating <= 2:
		return -0.06
	default:
		return 0
	}
}

// matchedIssues records which reliability-impact keyword categories an
// entry's issue codes matched, used both for the per-issue delta sum and
// to decide the ghost reverse-boost and the ReliabilityEvent type.
type matchedIssues struct {
	ghost      bool
	noShow     bool
	lateCancel bool
	onTime     bool
	attended   bool
}

// applyIssueDeltas sums the per-issue-code deltas of spec §4.8 step 5
// ("ghost|no_show → −0.25; late_cancel|late → −0.12; on_time|attended →
// +0.08; others 0"), using lowercased substring matching (spec §9), and
// increments the ratee's matching counters for each category matched.
func applyIssueDeltas(ratee *Persona, issues []Issue) (float64, matchedIssues) {
	var total float64
	var m matchedIssues
	for _, issue := range issues {
		code := strings.ToLower(issue.Code)
		switch {
		case strings.Contains(code, "ghost"):
			total += -0.25
			if !m.ghost {
				ratee.Reliability.GhostCount++
			}
			m.ghost = true
		case strings.Contains(code, "no_show"):
			total += -0.25
			if !m.noShow {
				ratee.Reliability.NoShowCount++
			}
			m.noShow = true
		case strings.Contains(code, "late_cancel"), strings.Contains(code, "late"):
			total += -0.12
			if !m.lateCancel {
				ratee.Reliability.LateCancelCount++
			}
			m.lateCancel = true
		case strings.Contains(code, "on_time"):
			total += 0.08
			if !m.onTime {
				ratee.Reliability.AttendedCount++
			}
			m.onTime = true
		case strings.Contains(code, "attended"):
			total += 0.08
			if !m.attended {
				ratee.Reliability.AttendedCount++
			}
			m.attended = true
		}
	}
	return total, m
}

// reliabilityEventType picks the single dominant type for the entry's
// ReliabilityEvent (spec §4.8 step 5 names five possible types but the
// event is appended once per entry): the most severe matched category
// wins, falling back to the sign of the scaled delta when no issue code
// matched any keyword.
func reliabilityEventType(m matchedIssues, totalDelta float64) string {
	switch {
	case m.ghost:
		return "ghost"
	case m.noShow:
		return "no_show"
	case m.lateCancel:
		return "late_cancel"
	case m.onTime:
		return "on_time"
	case m.attended:
		return "attended"
	case totalDelta < 0:
		return "late_cancel"
	default:
		return "attended"
	}
}

// recomputeRaterBias folds one new entry into the rater's rolling stats and
// re-derives the three bias scores using the exact formulas of spec §4.8
// step 8 (raw rating and raw sentiment, not the bias-adjusted values —
// the rater's own calibration must be measured against what they actually
// submitted).
func recomputeRaterBias(rater *Persona, entry *FeedbackEntry, rating float64) {
	stats := &rater.FeedbackBias.Stats
	n := stats.RatingsGiven
	stats.AverageRating = (stats.AverageRating*float64(n) + rating) / float64(n+1)
	stats.RatingsGiven = n + 1

	negatives := stats.NegativeRate * float64(n)
	if entry.Sentiment == SentimentNegative {
		negatives++
	}
	stats.NegativeRate = negatives / float64(stats.RatingsGiven)

	redFlags := stats.RedFlagRate * float64(n)
	if len(entry.RedFlags) > 0 {
		redFlags++
	}
	stats.RedFlagRate = redFlags / float64(stats.RatingsGiven)

	rater.FeedbackBias.HarshnessScore = clamp(1-stats.AverageRating/5, 0, 1)
	rater.FeedbackBias.PositivityBias = clamp(1-stats.NegativeRate, 0, 1)
	rater.FeedbackBias.RedFlagFrequency = clamp(stats.RedFlagRate, 0, 1)
}

func appendUnique(xs []string, v string) []string {
	for _, x := range xs {
		if x == v {
			return xs
		}
	}
	return append(xs, v)
}
