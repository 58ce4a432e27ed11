package engine

import (
	"testing"

	"github.com/sprite-ai/prgate/internal/model"
)

func TestBuildLatestReviewsHighestIDWins(t *testing.T) {
	reviews := []model.Review{
		{ID: 10, UserID: 1, UserLogin: "alice", State: model.ReviewApproved},
		{ID: 20, UserID: 1, UserLogin: "alice", State: "CHANGES_REQUESTED"},
		{ID: 15, UserID: 2, UserLogin: "bob", State: "CHANGES_REQUESTED"},
		{ID: 25, UserID: 2, UserLogin: "bob", State: model.ReviewApproved},
	}

	latest := BuildLatestReviews(reviews, "", 0, false)

	if latest[1].IsApproval {
		t.Error("alice's later changes-requested review should win")
	}
	if !latest[2].IsApproval {
		t.Error("bob's later approval should win")
	}
}

func TestBuildLatestReviewsDiscards(t *testing.T) {
	reviews := []model.Review{
		{ID: 1, UserID: 1, UserLogin: "alice", State: model.ReviewCommented},
		{ID: 2, UserID: 0, UserLogin: "", State: model.ReviewApproved},
	}

	latest := BuildLatestReviews(reviews, "", 0, false)
	if len(latest) != 0 {
		t.Errorf("expected comment-only and unknown-user reviews to be dropped, got %v", latest)
	}
}

func TestBuildLatestReviewsCommentDoesNotShadowApproval(t *testing.T) {
	// A later comment must not erase an earlier approval: comments are
	// discarded before the reduction.
	reviews := []model.Review{
		{ID: 1, UserID: 1, UserLogin: "alice", State: model.ReviewApproved},
		{ID: 2, UserID: 1, UserLogin: "alice", State: model.ReviewCommented},
	}

	latest := BuildLatestReviews(reviews, "", 0, false)
	if !latest[1].IsApproval {
		t.Error("expected alice's approval to survive a later comment")
	}
}

func TestAuthorSelfApproval(t *testing.T) {
	latest := BuildLatestReviews(nil, "author", 7, false)
	review, ok := latest[7]
	if !ok || !review.IsApproval {
		t.Fatal("expected a synthetic approval for the author")
	}
	if review.Login != "author" {
		t.Errorf("unexpected login %q", review.Login)
	}
}

func TestAuthorSelfApprovalExcluded(t *testing.T) {
	latest := BuildLatestReviews(nil, "author", 7, true)
	if len(latest) != 0 {
		t.Errorf("excluded author must not receive a synthetic approval, got %v", latest)
	}
}

func TestAuthorSelfApprovalDoesNotShadowRealReview(t *testing.T) {
	reviews := []model.Review{
		{ID: 5, UserID: 7, UserLogin: "author", State: "CHANGES_REQUESTED"},
	}
	latest := BuildLatestReviews(reviews, "author", 7, false)
	if latest[7].IsApproval {
		t.Error("a real review from the author must not be overwritten")
	}
}
