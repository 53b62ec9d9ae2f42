package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-api-social/internal/application/comment"
	"github.com/go-api-social/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCommentSvc struct{ mock.Mock }

func (m *mockCommentSvc) ListByPost(ctx context.Context, postID int64) (*comment.Listing, error) {
	args := m.Called(ctx, postID)
	if l, _ := args.Get(0).(*comment.Listing); l != nil {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCommentSvc) Create(ctx context.Context, in comment.CreateInput) (*domain.Comment, error) {
	args := m.Called(ctx, in)
	if c, _ := args.Get(0).(*domain.Comment); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCommentSvc) Delete(ctx context.Context, commentID, requesterID int64) error {
	return m.Called(ctx, commentID, requesterID).Error(0)
}

func TestListComments(t *testing.T) {
	svc := &mockCommentSvc{}
	svc.On("ListByPost", mock.Anything, int64(3)).Return(&comment.Listing{
		Comments: []domain.Comment{{ID: 1, PostID: 3, Content: "hi"}},
		Threads:  []domain.CommentThread{},
	}, nil)

	req := withParams(httptest.NewRequest(http.MethodGet, "/api/comments/3", nil), "post_id", "3")
	rr := httptest.NewRecorder()
	NewCommentHandler(svc).List(rr, asUser(req, 1, false))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Len(t, body["comments"], 1)
	assert.Contains(t, body, "threads")
}

func TestListComments_PostMissing(t *testing.T) {
	svc := &mockCommentSvc{}
	svc.On("ListByPost", mock.Anything, int64(3)).Return(nil, fmt.Errorf("Post not found: %w", domain.ErrNotFound))

	req := withParams(httptest.NewRequest(http.MethodGet, "/api/comments/3", nil), "post_id", "3")
	rr := httptest.NewRecorder()
	NewCommentHandler(svc).List(rr, asUser(req, 1, false))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateComment_Reply(t *testing.T) {
	svc := &mockCommentSvc{}
	parent := int64(8)
	svc.On("Create", mock.Anything, comment.CreateInput{PostID: 3, UserID: 2, Content: "nice", ParentID: &parent}).
		Return(&domain.Comment{ID: 9, PostID: 3, ParentID: &parent}, nil)

	req := multipartReq(t, http.MethodPost, "/api/comments/3",
		map[string]string{"content": "nice", "parent_id": "8"}, "", "", nil)
	rr := httptest.NewRecorder()
	NewCommentHandler(svc).Create(rr, asUser(withParams(req, "post_id", "3"), 2, true))

	assert.Equal(t, http.StatusCreated, rr.Code)
	svc.AssertExpectations(t)
}

func TestCreateComment_BadParent(t *testing.T) {
	svc := &mockCommentSvc{}
	req := multipartReq(t, http.MethodPost, "/api/comments/3",
		map[string]string{"content": "nice", "parent_id": "x"}, "", "", nil)
	rr := httptest.NewRecorder()
	NewCommentHandler(svc).Create(rr, asUser(withParams(req, "post_id", "3"), 2, true))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDeleteComment(t *testing.T) {
	svc := &mockCommentSvc{}
	svc.On("Delete", mock.Anything, int64(5), int64(2)).Return(nil)

	req := withParams(httptest.NewRequest(http.MethodDelete, "/api/comments/5", nil), "id", "5")
	rr := httptest.NewRecorder()
	NewCommentHandler(svc).Delete(rr, asUser(req, 2, true))

	assert.Equal(t, http.StatusOK, rr.Code)
}
