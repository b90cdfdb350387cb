package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

// newTestDB returns a fresh in-memory database that is closed when the test
// finishes. Each call gets its own database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "User " + username,
		Avatar:       "https://assets.test/avatars/" + username + ".png",
		PasswordHash: "hash",
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createTestVideo(t *testing.T, db *DB, owner *model.User, title string, published bool) *model.Video {
	t.Helper()
	v := &model.Video{
		VideoFile:   "https://assets.test/videos/" + title + ".mp4",
		Thumbnail:   "https://assets.test/thumbnails/" + title + ".png",
		Title:       title,
		Description: "about " + title,
		Duration:    12.5,
		IsPublished: published,
		Owner:       owner.Summary(),
	}
	if err := db.CreateVideo(context.Background(), v); err != nil {
		t.Fatalf("failed to create test video: %v", err)
	}
	return v
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// =========================================================================
// USERS
// =========================================================================

func TestCreateUser_NormalizesAndPersists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &model.User{
		Username: "  Alice ", Email: "Alice@Example.COM", FullName: "Alice",
		Avatar: "https://assets.test/a.png", PasswordHash: "h",
	}
	if err := db.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Fatalf("CreateUser() did not fill id/timestamps: %+v", u)
	}

	got, err := db.GetUserByUsername(ctx, "ALICE")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if got.Username != "alice" || got.Email != "alice@example.com" {
		t.Errorf("stored username/email = %q/%q, want lower-cased", got.Username, got.Email)
	}
	if !got.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, u.CreatedAt)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "bob")

	dup := &model.User{Username: "BOB", Email: "other@example.com", FullName: "x", Avatar: "a", PasswordHash: "h"}
	err := db.CreateUser(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFindUserByLogin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	carol := createTestUser(t, db, "carol")

	tests := []struct {
		name            string
		username, email string
		wantFound       bool
	}{
		{"by username", "carol", "", true},
		{"by email", "", "CAROL@example.com", true},
		{"either matches", "nobody", "carol@example.com", true},
		{"neither", "nobody", "nobody@example.com", false},
		{"both empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.FindUserByLogin(ctx, tt.username, tt.email)
			if !tt.wantFound {
				assertNotFound(t, err)
				return
			}
			if err != nil {
				t.Fatalf("FindUserByLogin() error = %v", err)
			}
			if got.ID != carol.ID {
				t.Errorf("found %s, want %s", got.ID, carol.ID)
			}
		})
	}
}

func TestSwapRefreshToken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "dave")

	ok, err := db.SwapRefreshToken(ctx, u.ID, "", "first")
	if err != nil || ok {
		t.Fatalf("swap on empty slot = %v, %v; want false, nil", ok, err)
	}

	if err := db.SetRefreshToken(ctx, u.ID, "first"); err != nil {
		t.Fatalf("SetRefreshToken() error = %v", err)
	}
	if ok, _ := db.SwapRefreshToken(ctx, u.ID, "stale", "second"); ok {
		t.Error("swap with stale token succeeded")
	}
	if ok, _ := db.SwapRefreshToken(ctx, u.ID, "first", "second"); !ok {
		t.Error("swap with current token failed")
	}
	// A replayed token must not rotate again.
	if ok, _ := db.SwapRefreshToken(ctx, u.ID, "first", "third"); ok {
		t.Error("replayed token rotated twice")
	}

	got, _ := db.GetUserByID(ctx, u.ID)
	if got.RefreshToken != "second" {
		t.Errorf("RefreshToken = %q, want %q", got.RefreshToken, "second")
	}
}

// =========================================================================
// VIDEOS
// =========================================================================

func TestListVideos_Pagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "erin")

	for i := 1; i <= 12; i++ {
		createTestVideo(t, db, owner, fmt.Sprintf("video-%02d", i), true)
	}

	videos, total, err := db.ListVideos(ctx, repository.VideoFilter{},
		repository.ListOptions{Limit: 5, Offset: 5, SortBy: repository.SortTitle})
	if err != nil {
		t.Fatalf("ListVideos() error = %v", err)
	}
	if total != 12 {
		t.Errorf("total = %d, want 12", total)
	}
	if len(videos) != 5 {
		t.Fatalf("len = %d, want 5", len(videos))
	}
	for i, v := range videos {
		want := fmt.Sprintf("video-%02d", i+6)
		if v.Title != want {
			t.Errorf("videos[%d].Title = %q, want %q", i, v.Title, want)
		}
		if v.Owner.Username != "erin" {
			t.Errorf("owner not joined: %+v", v.Owner)
		}
	}
	if p := model.NewPage(videos, total, 2, 5); p.Pagination.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", p.Pagination.TotalPages)
	}
}

func TestListVideos_Visibility(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "frank")
	other := createTestUser(t, db, "grace")

	createTestVideo(t, db, owner, "public", true)
	createTestVideo(t, db, owner, "draft", false)

	_, anon, _ := db.ListVideos(ctx, repository.VideoFilter{ViewerID: other.ID}, repository.ListOptions{})
	if anon != 1 {
		t.Errorf("other viewer sees %d videos, want 1", anon)
	}
	_, mine, _ := db.ListVideos(ctx, repository.VideoFilter{ViewerID: owner.ID}, repository.ListOptions{})
	if mine != 2 {
		t.Errorf("owner sees %d videos, want 2", mine)
	}
}

func TestListVideos_QueryAndOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "heidi")
	b := createTestUser(t, db, "ivan")

	createTestVideo(t, db, a, "Cooking pasta", true)
	createTestVideo(t, db, b, "cooking rice", true)
	createTestVideo(t, db, b, "100%_done", true)

	_, n, _ := db.ListVideos(ctx, repository.VideoFilter{Query: "COOKING"}, repository.ListOptions{})
	if n != 2 {
		t.Errorf("query match = %d, want 2", n)
	}
	_, n, _ = db.ListVideos(ctx, repository.VideoFilter{Query: "cooking", OwnerID: b.ID}, repository.ListOptions{})
	if n != 1 {
		t.Errorf("query+owner match = %d, want 1", n)
	}
	// Wildcards in the query are literal.
	_, n, _ = db.ListVideos(ctx, repository.VideoFilter{Query: "%_"}, repository.ListOptions{})
	if n != 1 {
		t.Errorf("literal wildcard match = %d, want 1", n)
	}
}

func TestToggleVideoPublished(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	v := createTestVideo(t, db, createTestUser(t, db, "judy"), "clip", true)

	got, err := db.ToggleVideoPublished(ctx, v.ID)
	if err != nil || got {
		t.Fatalf("first toggle = %v, %v; want false, nil", got, err)
	}
	if got, _ := db.ToggleVideoPublished(ctx, v.ID); !got {
		t.Error("second toggle did not republish")
	}
	_, err = db.ToggleVideoPublished(ctx, "missing")
	assertNotFound(t, err)
}

func TestDeleteVideo_Cascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "kim")
	v := createTestVideo(t, db, u, "doomed", true)

	c := &model.Comment{VideoID: v.ID, Content: "nice", Owner: u.Summary()}
	if err := db.CreateComment(ctx, c); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	db.ToggleLike(ctx, &model.Like{LikedBy: u.ID, Target: model.LikeTarget{Kind: model.LikeVideo, ID: v.ID}})
	db.ToggleLike(ctx, &model.Like{LikedBy: u.ID, Target: model.LikeTarget{Kind: model.LikeComment, ID: c.ID}})
	p := &model.Playlist{Name: "mix", Owner: u.Summary()}
	db.CreatePlaylist(ctx, p)
	db.AddVideoToPlaylist(ctx, p.ID, v.ID)
	db.AddToWatchHistory(ctx, u.ID, v.ID)

	if err := db.DeleteVideo(ctx, v.ID); err != nil {
		t.Fatalf("DeleteVideo() error = %v", err)
	}

	for table, want := range map[string]int{"comments": 0, "likes": 0, "playlist_videos": 0, "watch_history": 0} {
		var n int
		db.conn.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n)
		if n != want {
			t.Errorf("%s has %d rows after delete, want %d", table, n, want)
		}
	}
	assertNotFound(t, db.DeleteVideo(ctx, v.ID))
}

// =========================================================================
// LIKES AND SUBSCRIPTIONS
// =========================================================================

func TestToggleLike(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "leo")
	first := createTestVideo(t, db, u, "first", true)
	second := createTestVideo(t, db, u, "second", true)

	like := func(id string) bool {
		t.Helper()
		liked, err := db.ToggleLike(ctx, &model.Like{LikedBy: u.ID, Target: model.LikeTarget{Kind: model.LikeVideo, ID: id}})
		if err != nil {
			t.Fatalf("ToggleLike() error = %v", err)
		}
		return liked
	}

	if !like(second.ID) || !like(first.ID) {
		t.Fatal("first toggle should like")
	}
	liked, _ := db.ListLikedVideos(ctx, u.ID)
	if len(liked) != 2 || liked[0].ID != second.ID {
		t.Errorf("liked videos = %+v, want second then first", liked)
	}

	if like(second.ID) {
		t.Error("second toggle should unlike")
	}
	liked, _ = db.ListLikedVideos(ctx, u.ID)
	if len(liked) != 1 || liked[0].ID != first.ID {
		t.Errorf("liked videos after unlike = %+v", liked)
	}

	_, err := db.ToggleLike(ctx, &model.Like{LikedBy: u.ID, Target: model.LikeTarget{Kind: model.LikeTweet, ID: "missing"}})
	assertNotFound(t, err)
}

func TestSubscriptionsAndChannelProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	channel := createTestUser(t, db, "mona")
	fan := createTestUser(t, db, "ned")
	other := createTestUser(t, db, "olga")

	for _, sub := range []*model.User{fan, other} {
		ok, err := db.ToggleSubscription(ctx, &model.Subscription{SubscriberID: sub.ID, ChannelID: channel.ID})
		if err != nil || !ok {
			t.Fatalf("subscribe %s = %v, %v", sub.Username, ok, err)
		}
	}
	db.ToggleSubscription(ctx, &model.Subscription{SubscriberID: channel.ID, ChannelID: fan.ID})

	p, err := db.ChannelProfile(ctx, "MONA", fan.ID)
	if err != nil {
		t.Fatalf("ChannelProfile() error = %v", err)
	}
	if p.SubscribersCount != 2 || p.ChannelsSubscribedToCount != 1 || !p.IsSubscribed {
		t.Errorf("profile = %+v", p)
	}

	if ok, _ := db.ToggleSubscription(ctx, &model.Subscription{SubscriberID: fan.ID, ChannelID: channel.ID}); ok {
		t.Error("second toggle should unsubscribe")
	}
	p, _ = db.ChannelProfile(ctx, "mona", fan.ID)
	if p.SubscribersCount != 1 || p.IsSubscribed {
		t.Errorf("profile after unsubscribe = %+v", p)
	}

	subs, _ := db.ListSubscribers(ctx, channel.ID)
	if len(subs) != 1 || subs[0].ID != other.ID || subs[0].Email != other.Email {
		t.Errorf("subscribers = %+v", subs)
	}
	chans, _ := db.ListSubscribedChannels(ctx, channel.ID)
	if len(chans) != 1 || chans[0].ID != fan.ID {
		t.Errorf("subscribed channels = %+v", chans)
	}

	_, err = db.ChannelProfile(ctx, "nobody", "")
	assertNotFound(t, err)
}

func TestToggles_ConcurrentParity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	channel := createTestUser(t, db, "quinn")
	fan := createTestUser(t, db, "rosa")
	v := createTestVideo(t, db, channel, "clip", true)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := db.ToggleLike(ctx, &model.Like{LikedBy: fan.ID, Target: model.LikeTarget{Kind: model.LikeVideo, ID: v.ID}})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := db.ToggleSubscription(ctx, &model.Subscription{SubscriberID: fan.ID, ChannelID: channel.ID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("toggle error = %v", err)
		}
	}

	liked, err := db.ListLikedVideos(ctx, fan.ID)
	if err != nil {
		t.Fatalf("ListLikedVideos() error = %v", err)
	}
	if len(liked) != n%2 {
		t.Errorf("liked videos = %d, want %d", len(liked), n%2)
	}
	subs, err := db.ListSubscribers(ctx, channel.ID)
	if err != nil {
		t.Fatalf("ListSubscribers() error = %v", err)
	}
	if len(subs) != n%2 {
		t.Errorf("subscribers = %d, want %d", len(subs), n%2)
	}
}

// =========================================================================
// PLAYLISTS AND WATCH HISTORY
// =========================================================================

func TestPlaylistVideos(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "pat")
	a := createTestVideo(t, db, u, "a", true)
	b := createTestVideo(t, db, u, "b", true)

	p := &model.Playlist{Name: "faves", Owner: u.Summary()}
	if err := db.CreatePlaylist(ctx, p); err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}

	for _, id := range []string{b.ID, a.ID} {
		if added, err := db.AddVideoToPlaylist(ctx, p.ID, id); err != nil || !added {
			t.Fatalf("AddVideoToPlaylist(%s) = %v, %v", id, added, err)
		}
	}
	if added, _ := db.AddVideoToPlaylist(ctx, p.ID, a.ID); added {
		t.Error("duplicate add reported as added")
	}

	got, err := db.GetPlaylistByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPlaylistByID() error = %v", err)
	}
	if len(got.Videos) != 2 || got.Videos[0].ID != b.ID || got.Videos[1].ID != a.ID {
		t.Errorf("videos = %+v, want b then a", got.Videos)
	}

	if err := db.RemoveVideoFromPlaylist(ctx, p.ID, b.ID); err != nil {
		t.Fatalf("RemoveVideoFromPlaylist() error = %v", err)
	}
	lists, _ := db.ListPlaylistsByOwner(ctx, u.ID)
	if len(lists) != 1 || len(lists[0].Videos) != 1 || lists[0].Videos[0].ID != a.ID {
		t.Errorf("playlists = %+v", lists)
	}

	if err := db.DeletePlaylist(ctx, p.ID); err != nil {
		t.Fatalf("DeletePlaylist() error = %v", err)
	}
	_, err = db.GetPlaylistByID(ctx, p.ID)
	assertNotFound(t, err)
}

func TestWatchHistory_MovesRewatchToEnd(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "quinn")
	a := createTestVideo(t, db, u, "a", true)
	b := createTestVideo(t, db, u, "b", true)

	for _, id := range []string{a.ID, b.ID, a.ID} {
		if err := db.AddToWatchHistory(ctx, u.ID, id); err != nil {
			t.Fatalf("AddToWatchHistory() error = %v", err)
		}
	}

	h, err := db.WatchHistory(ctx, u.ID)
	if err != nil {
		t.Fatalf("WatchHistory() error = %v", err)
	}
	if len(h) != 2 || h[0].ID != b.ID || h[1].ID != a.ID {
		t.Fatalf("history = %+v, want b then a", h)
	}
	if h[0].Owner.Email != u.Email {
		t.Errorf("owner email = %q, want %q", h[0].Owner.Email, u.Email)
	}

	assertNotFound(t, db.AddToWatchHistory(ctx, u.ID, "missing"))
}
