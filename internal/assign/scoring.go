package assign

import (
	"errors"
	"strings"

	"github.com/societyops/society-service/internal/domain"
)

// Scoring weights. The rate threshold biases toward lower-cost technicians
// when skill match is tied.
const (
	scoreExactSkill   = 3
	scorePartialSkill = 2
	scoreAvailable    = 1
	scoreAffordable   = 1

	affordableRateLimit = 600
)

// ErrInvalidCandidate flags a malformed technician entry that must not be
// scored.
var ErrInvalidCandidate = errors.New("invalid technician candidate")

// ValidateCandidate rejects malformed technician entries before scoring.
func ValidateCandidate(tech domain.Technician) error {
	if strings.TrimSpace(tech.ID) == "" {
		return ErrInvalidCandidate
	}
	if strings.TrimSpace(tech.Name) == "" {
		return ErrInvalidCandidate
	}
	if tech.HourlyRate <= 0 {
		return ErrInvalidCandidate
	}
	return nil
}

// FilterAvailable returns candidates with availability "available",
// preserving input order.
func FilterAvailable(techs []domain.Technician) []domain.Technician {
	out := make([]domain.Technician, 0, len(techs))
	for _, tech := range techs {
		if tech.Availability == domain.AvailabilityAvailable {
			out = append(out, tech)
		}
	}
	return out
}

// Score computes the match score of one candidate for an issue category.
// Exact skill match dominates; a substring relationship either direction
// counts as a partial match. Availability is scored even though callers
// normally pre-filter, so second-pass callers still bias toward available
// technicians.
func Score(category domain.IssueCategory, tech domain.Technician) int {
	cat := strings.ToLower(string(category))
	score := 0

	exact := false
	partial := false
	for _, skill := range tech.Skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		if skill == cat {
			exact = true
			break
		}
		if strings.Contains(cat, skill) || strings.Contains(skill, cat) {
			partial = true
		}
	}
	if exact {
		score += scoreExactSkill
	} else if partial {
		score += scorePartialSkill
	}

	if tech.Availability == domain.AvailabilityAvailable {
		score += scoreAvailable
	}
	if tech.HourlyRate < affordableRateLimit {
		score += scoreAffordable
	}
	return score
}

// Select picks the best candidate for the category, or reports no match.
// Selection is deterministic: the highest score wins and exact ties keep
// the first candidate in input order, so callers control tie-breaking by
// ordering the list. If nobody scores above zero the first available
// candidate is assigned anyway; the system degrades to "assign someone"
// rather than leaving issues perpetually unassigned.
func Select(category domain.IssueCategory, candidates []domain.Technician) (domain.Technician, bool) {
	var best domain.Technician
	bestScore := 0
	found := false

	for _, tech := range candidates {
		if err := ValidateCandidate(tech); err != nil {
			continue
		}
		score := Score(category, tech)
		if score > bestScore {
			best = tech
			bestScore = score
			found = true
		}
	}
	if found {
		return best, true
	}

	for _, tech := range candidates {
		if err := ValidateCandidate(tech); err != nil {
			continue
		}
		if tech.Availability == domain.AvailabilityAvailable {
			return tech, true
		}
	}
	return domain.Technician{}, false
}
