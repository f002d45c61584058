// Package risk folds detector outputs into a single score and decision.
package risk

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"

	"github.com/spigell/cv-verifier/internal/activity"
	"github.com/spigell/cv-verifier/internal/detect"
	"github.com/spigell/cv-verifier/internal/purpose"
	"github.com/spigell/cv-verifier/internal/utils"
)

const (
	pairWeight       = 0.3
	pairCap          = 1.0
	purposePenalty   = 0.2
	noCommitsPenalty = 0.5

	rejectAbove = 1.5
	reviewAbove = 1.0
)

type Decision int

const (
	Accept Decision = iota
	ManualReview
	Reject
)

var decisionNames = map[Decision]string{
	Accept:       "Accept",
	ManualReview: "Manual Review",
	Reject:       "Reject",
}

func (d Decision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return "Unknown"
}

func (d Decision) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Decision) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for decision, n := range decisionNames {
		if n == name {
			*d = decision
			return nil
		}
	}
	return eris.Errorf("unknown decision %q", name)
}

// Assessment is the aggregated risk of one document.
type Assessment struct {
	Score        float64  `json:"score"`
	Decision     Decision `json:"decision"`
	TotalCommits int      `json:"total_commits"`
}

// Inputs are the signals the aggregator weighs.
type Inputs struct {
	Overlaps          []detect.Pair
	LocationConflicts []detect.Pair
	PurposeChecks     []purpose.Check
	Activity          map[string]activity.Result
}

// Aggregate scores the inputs. Missing inputs contribute nothing except the
// activity penalty, which applies whenever no commits were found.
func Aggregate(in Inputs) Assessment {
	score := 0.0
	score += math.Min(float64(len(in.Overlaps))*pairWeight, pairCap)
	score += math.Min(float64(len(in.LocationConflicts))*pairWeight, pairCap)

	for _, check := range in.PurposeChecks {
		if !check.Matched {
			score += purposePenalty
		}
	}

	total := activity.TotalCommits(in.Activity)
	if total == 0 {
		score += noCommitsPenalty
	}

	return Assessment{
		Score:        utils.Round2(score),
		Decision:     Decide(score),
		TotalCommits: total,
	}
}

// Decide maps a raw score onto a decision.
func Decide(score float64) Decision {
	switch {
	case score > rejectAbove:
		return Reject
	case score > reviewAbove:
		return ManualReview
	default:
		return Accept
	}
}
