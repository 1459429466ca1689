package service

import (
	"github.com/roshaninfordham/safebiteai/internal/adapter/foodkeeper"
	"github.com/roshaninfordham/safebiteai/internal/domain"
)

// Safety score penalties.
const (
	recallPenalty   = 40
	allergenPenalty = 20
	riskNotePenalty = 10
)

// computeSafety scores a product from its recall state, allergen tags and
// storage guidance.
func computeSafety(hasRecall bool, allergens []string, guidance *foodkeeper.Record) (int, domain.SafetyFlag) {
	score := 100
	if hasRecall {
		score -= recallPenalty
	}
	if len(allergens) > 0 {
		score -= allergenPenalty
	}
	if guidance.MentionsRisk() {
		score -= riskNotePenalty
	}
	score = domain.ClampScore(score)
	return score, domain.FlagForScore(score)
}

// defaultAlternatives are suggested for Unsafe and Caution verdicts.
func defaultAlternatives() []domain.Alternative {
	return []domain.Alternative{
		{Name: "Plant-based alternative", Why: "Lower risk and impact", TasteSimilarity: "7/10"},
		{Name: "Local fresh produce", Why: "Fewer recalls; shorter supply chain", TasteSimilarity: "6/10"},
	}
}
