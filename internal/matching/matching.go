// Package matching ranks open jobs for a professional. Match and Relevance
// are pure functions over their inputs and safe for concurrent use.
package matching

import (
	"cmp"
	"slices"
	"strings"

	"github.com/garnizeh/marketplace/internal/config"
	"github.com/garnizeh/marketplace/pkg/models"
)

type Weights struct {
	Category int
	Location int
	Base     int
}

var DefaultWeights = Weights{Category: 60, Location: 30, Base: 10}

func WeightsFrom(cfg config.MatchingConfig) Weights {
	if cfg == (config.MatchingConfig{}) {
		return DefaultWeights
	}
	return Weights{Category: cfg.CategoryWeight, Location: cfg.LocationWeight, Base: cfg.BaseWeight}
}

type Options struct {
	OldestFirst bool
	Weights     Weights
}

type Scored struct {
	Job   models.Job `json:"job"`
	Score int        `json:"score"`
}

// Match returns the candidate jobs for pro, best first. A job is a candidate
// only if it is quotable, its category is offered by pro and pro has not
// quoted it yet (quoted is keyed by job id).
func Match(pro models.Profile, jobs []models.Job, quoted map[string]bool, opts Options) []Scored {
	if pro.Role != models.RoleProfessional || len(pro.Services) == 0 {
		return nil
	}
	w := opts.Weights
	if w == (Weights{}) {
		w = DefaultWeights
	}

	out := make([]Scored, 0, len(jobs))
	for _, j := range jobs {
		if quoted[j.ID] {
			continue
		}
		score, ok := relevance(j, pro, w)
		if !ok {
			continue
		}
		out = append(out, Scored{Job: j, Score: score})
	}

	slices.SortStableFunc(out, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		c := cmp.Compare(b.Job.Created, a.Job.Created)
		if opts.OldestFirst {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Job.ID, b.Job.ID)
	})
	return out
}

// Relevance is the inverted view: how well pro fits job. Zero means pro is
// not a candidate at all.
func Relevance(job models.Job, pro models.Profile, w Weights) int {
	if w == (Weights{}) {
		w = DefaultWeights
	}
	score, _ := relevance(job, pro, w)
	return score
}

func relevance(job models.Job, pro models.Profile, w Weights) (int, bool) {
	if !job.Status.Quotable() || !pro.Offers(job.Category) {
		return 0, false
	}
	score := w.Category + w.Base
	if job.Remote || LocationMatches(job.Location, pro.Location) {
		score += w.Location
	}
	return score, true
}

// LocationMatches reports whether either location contains the other,
// ignoring case and surrounding space. Empty locations never match.
func LocationMatches(jobLocation, proLocation string) bool {
	a := strings.ToLower(strings.TrimSpace(jobLocation))
	b := strings.ToLower(strings.TrimSpace(proLocation))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
