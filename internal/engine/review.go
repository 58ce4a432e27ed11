package engine

import (
	"github.com/sprite-ai/prgate/internal/model"
)

// BuildLatestReviews reduces the raw review list to one verdict per reviewer:
// comment-only reviews and reviews from unknown users are discarded, and for
// each reviewer only the review with the highest id survives. Unless the
// author is excluded from review requests, a synthetic approval is injected
// for them since their own authorship counts as an implicit approval.
func BuildLatestReviews(reviews []model.Review, authorLogin string, authorID int64, authorExcluded bool) map[int64]model.LatestReview {
	latest := make(map[int64]model.LatestReview)

	for _, review := range reviews {
		if review.UserLogin == "" {
			continue
		}
		if review.State == model.ReviewCommented {
			continue
		}
		prev, ok := latest[review.UserID]
		if !ok || prev.ID < review.ID {
			latest[review.UserID] = model.LatestReview{
				ID:         review.ID,
				Login:      review.UserLogin,
				IsApproval: review.State == model.ReviewApproved,
			}
		}
	}

	if authorLogin != "" && !authorExcluded {
		if _, ok := latest[authorID]; !ok {
			latest[authorID] = model.LatestReview{Login: authorLogin, IsApproval: true}
		}
	}

	return latest
}

// approvalLedger is the evaluator's view of the reduced reviews.
type approvalLedger struct {
	approvedBy map[string]struct{}
	total      int
}

func buildLedger(latest map[int64]model.LatestReview) *approvalLedger {
	ledger := &approvalLedger{approvedBy: make(map[string]struct{})}
	for _, review := range latest {
		if review.IsApproval {
			ledger.approvedBy[review.Login] = struct{}{}
			ledger.total++
		}
	}
	return ledger
}

// Approved reports whether login has approved the pull request.
func (l *approvalLedger) Approved(login string) bool {
	_, ok := l.approvedBy[login]
	return ok
}
