package postgres

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-api-social/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), GormConfig(false))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return New(db)
}

func seedUser(t *testing.T, s *Store, username string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Membership:   domain.MembershipBasic,
	}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func seedPost(t *testing.T, s *Store, id, userID int64, title string, createdAt time.Time) *domain.Post {
	t.Helper()
	p := &domain.Post{ID: id, UserID: userID, Title: title, Content: "body", CreatedAt: createdAt}
	require.NoError(t, s.DB.Create(p).Error)
	return p
}

func seedLikes(t *testing.T, s *Store, postID int64, users []*domain.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, s.DB.Create(&domain.Like{UserID: u.ID, PostID: postID}).Error)
	}
}

func feedIDs(items []domain.FeedItem) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.PostID
	}
	return ids
}

// --- users ---

func TestUserRepo_CreateDuplicateIsConflict(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "alice")

	err := s.Users().Create(context.Background(), &domain.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_GetMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Users().Get(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Users().GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_GetByEmailIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "alice")
	got, err := s.Users().GetByEmail(context.Background(), "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestUserRepo_UpgradeMembershipIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "alice")
	ctx := context.Background()

	changed, err := s.Users().UpgradeMembership(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Users().UpgradeMembership(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := s.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipPremium, got.Membership)

	_, err = s.Users().UpgradeMembership(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_UpdateUsernameConflict(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	err := s.Users().Update(context.Background(), bob.ID, map[string]interface{}{"username": "alice"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	now := time.Now().UTC()
	ap := seedPost(t, s, 1, alice.ID, "alice post", now)
	bp := seedPost(t, s, 2, bob.ID, "bob post", now)
	seedLikes(t, s, ap.ID, []*domain.User{bob})
	seedLikes(t, s, bp.ID, []*domain.User{alice})
	require.NoError(t, s.Comments().Create(ctx, &domain.Comment{PostID: ap.ID, UserID: bob.ID, Content: "on alice"}))
	require.NoError(t, s.Comments().Create(ctx, &domain.Comment{PostID: bp.ID, UserID: alice.ID, Content: "on bob"}))

	require.NoError(t, s.Users().Delete(ctx, alice.ID))

	var n int64
	s.DB.Model(&domain.Post{}).Count(&n)
	assert.Equal(t, int64(1), n)
	s.DB.Model(&domain.Like{}).Count(&n)
	assert.Zero(t, n)
	s.DB.Model(&domain.Comment{}).Count(&n)
	assert.Zero(t, n)
}

// --- posts / feed ---

func TestPostRepo_FeedSortByLikesBreaksTiesByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := seedUser(t, s, "author")
	var likers []*domain.User
	for i := 0; i < 5; i++ {
		likers = append(likers, seedUser(t, s, fmt.Sprintf("liker%d", i)))
	}
	now := time.Now().UTC()
	seedPost(t, s, 10, author.ID, "ten", now)
	seedPost(t, s, 20, author.ID, "twenty", now)
	seedPost(t, s, 30, author.ID, "thirty", now)
	seedLikes(t, s, 10, likers)
	seedLikes(t, s, 20, likers)
	seedLikes(t, s, 30, likers[:2])

	items, err := s.Posts().Feed(ctx, domain.FeedQuery{SortBy: domain.SortLikes, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 10}, feedIDs(items))
	assert.Equal(t, int64(5), items[0].Likes)
	assert.Equal(t, "author", items[0].Username)

	items, err = s.Posts().Feed(ctx, domain.FeedQuery{SortBy: domain.SortLikes, Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{30}, feedIDs(items))
}

func TestPostRepo_FeedCountsDoNotMultiply(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	b := seedUser(t, s, "bob")
	p := seedPost(t, s, 1, a.ID, "post", time.Now().UTC())
	seedLikes(t, s, p.ID, []*domain.User{a, b})
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Comments().Create(ctx, &domain.Comment{PostID: p.ID, UserID: b.ID, Content: "c"}))
	}

	items, err := s.Posts().Feed(ctx, domain.FeedQuery{SortBy: domain.SortComments, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].Likes)
	assert.Equal(t, int64(3), items[0].Comments)
}

func TestPostRepo_FeedRecentUsesLastActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	seedPost(t, s, 1, a.ID, "old but edited", base)
	seedPost(t, s, 2, a.ID, "newer", base.Add(time.Hour))
	require.NoError(t, s.Posts().Update(ctx, 1, map[string]interface{}{"updated_at": base.Add(2 * time.Hour)}))

	items, err := s.Posts().Feed(ctx, domain.FeedQuery{SortBy: domain.SortRecent, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, feedIDs(items))
}

func TestPostRepo_FeedSearchAndAuthorFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	b := seedUser(t, s, "bob")
	now := time.Now().UTC()
	seedPost(t, s, 1, a.ID, "Hello World", now)
	seedPost(t, s, 2, b.ID, "hello there", now)
	seedPost(t, s, 3, b.ID, "100% off", now)

	items, err := s.Posts().Feed(ctx, domain.FeedQuery{SortBy: domain.SortRecent, Limit: 10, Search: "HELLO"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, feedIDs(items))

	items, err = s.Posts().Feed(ctx, domain.FeedQuery{SortBy: domain.SortRecent, Limit: 10, Search: "hello", UserID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, feedIDs(items))

	items, err = s.Posts().Feed(ctx, domain.FeedQuery{SortBy: domain.SortRecent, Limit: 10, Search: "%"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, feedIDs(items))
}

func TestPostRepo_FeedUnknownSort(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Posts().Feed(context.Background(), domain.FeedQuery{SortBy: "views", Limit: 10})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestPostRepo_Item(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	seedPost(t, s, 7, a.ID, "seven", time.Now().UTC())

	it, err := s.Posts().Item(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "seven", it.Title)
	assert.Equal(t, "alice", it.Username)

	_, err = s.Posts().Item(ctx, 8)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostRepo_CreateWithinQuota(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	seedPost(t, s, 1, a.ID, "yesterday", midnight.Add(-time.Minute))

	for i := 0; i < 2; i++ {
		require.NoError(t, s.Posts().CreateWithinQuota(ctx, &domain.Post{UserID: a.ID, Title: "t", Content: "c"}, midnight, 2))
	}
	err := s.Posts().CreateWithinQuota(ctx, &domain.Post{UserID: a.ID, Title: "t", Content: "c"}, midnight, 2)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	require.NoError(t, s.Posts().CreateWithinQuota(ctx, &domain.Post{UserID: a.ID, Title: "t", Content: "c"}, midnight, 0))

	n, err := s.Posts().CountSince(ctx, a.ID, midnight)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPostRepo_DeleteRemovesLikesAndComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	b := seedUser(t, s, "bob")
	p := seedPost(t, s, 1, a.ID, "doomed", time.Now().UTC())
	other := seedPost(t, s, 2, a.ID, "survivor", time.Now().UTC())
	seedLikes(t, s, p.ID, []*domain.User{a, b})
	seedLikes(t, s, other.ID, []*domain.User{b})
	parent := &domain.Comment{PostID: p.ID, UserID: b.ID, Content: "parent"}
	require.NoError(t, s.Comments().Create(ctx, parent))
	require.NoError(t, s.Comments().Create(ctx, &domain.Comment{PostID: p.ID, UserID: a.ID, ParentID: &parent.ID, Content: "reply"}))

	require.NoError(t, s.Posts().Delete(ctx, p.ID))

	_, err := s.Posts().Get(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var n int64
	s.DB.Model(&domain.Like{}).Where("post_id = ?", p.ID).Count(&n)
	assert.Zero(t, n)
	s.DB.Model(&domain.Comment{}).Where("post_id = ?", p.ID).Count(&n)
	assert.Zero(t, n)
	s.DB.Model(&domain.Like{}).Count(&n)
	assert.Equal(t, int64(1), n)

	assert.ErrorIs(t, s.Posts().Delete(ctx, p.ID), domain.ErrNotFound)
}

// --- likes ---

func TestLikeRepo_ToggleTwiceRestoresCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	b := seedUser(t, s, "bob")
	p := seedPost(t, s, 1, a.ID, "p", time.Now().UTC())
	seedLikes(t, s, p.ID, []*domain.User{b})

	res, err := s.Likes().Toggle(ctx, a.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, int64(2), res.Likes)

	res, err = s.Likes().Toggle(ctx, a.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, int64(1), res.Likes)
}

func TestLikeRepo_ToggleMissingPost(t *testing.T) {
	s := newTestStore(t)
	a := seedUser(t, s, "alice")
	_, err := s.Likes().Toggle(context.Background(), a.ID, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLikeRepo_UniquePairEnforcedByStorage(t *testing.T) {
	s := newTestStore(t)
	a := seedUser(t, s, "alice")
	p := seedPost(t, s, 1, a.ID, "p", time.Now().UTC())
	require.NoError(t, s.DB.Create(&domain.Like{UserID: a.ID, PostID: p.ID}).Error)

	err := s.DB.Create(&domain.Like{UserID: a.ID, PostID: p.ID}).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}

func TestLikeRepo_LikedPostIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	b := seedUser(t, s, "bob")
	now := time.Now().UTC()
	for id := int64(1); id <= 3; id++ {
		seedPost(t, s, id, b.ID, "p", now)
	}
	seedLikes(t, s, 1, []*domain.User{a})
	seedLikes(t, s, 3, []*domain.User{a, b})

	ids, err := s.Likes().LikedPostIDs(ctx, a.ID, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)

	ids, err = s.Likes().LikedPostIDs(ctx, a.ID, []int64{2})
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.Likes().LikedPostIDs(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// --- comments ---

func TestCommentRepo_ListByPostIncludesUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	p := seedPost(t, s, 1, a.ID, "p", time.Now().UTC())
	first := &domain.Comment{PostID: p.ID, UserID: a.ID, Content: "first"}
	require.NoError(t, s.Comments().Create(ctx, first))
	require.NoError(t, s.Comments().Create(ctx, &domain.Comment{PostID: p.ID, UserID: a.ID, ParentID: &first.ID, Content: "second"}))

	list, err := s.Comments().ListByPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "alice", list[0].Username)
	require.NotNil(t, list[1].ParentID)
	assert.Equal(t, first.ID, *list[1].ParentID)
}

func TestCommentRepo_DeleteRemovesReplies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	p := seedPost(t, s, 1, a.ID, "p", time.Now().UTC())
	parent := &domain.Comment{PostID: p.ID, UserID: a.ID, Content: "parent"}
	require.NoError(t, s.Comments().Create(ctx, parent))
	require.NoError(t, s.Comments().Create(ctx, &domain.Comment{PostID: p.ID, UserID: a.ID, ParentID: &parent.ID, Content: "reply"}))

	require.NoError(t, s.Comments().Delete(ctx, parent.ID))

	list, err := s.Comments().ListByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, s.Comments().Delete(ctx, parent.ID), domain.ErrNotFound)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := fmt.Errorf("boom")

	err := s.WithTx(ctx, func(tx *Store) error {
		require.NoError(t, tx.Users().Create(ctx, &domain.User{Username: "ghost", Email: "ghost@example.com", PasswordHash: "x"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Users().GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
