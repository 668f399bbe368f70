package services

import (
	"errors"
	"sync"
	"testing"

	"tickertalk/internal/models"
)

func TestCreatePostRequiresTitle(t *testing.T) {
	conn := openDB(t)
	s := NewFeedService(conn)
	u := createUser(t, conn, "alice", "alice@example.com", "secret123")

	if _, err := s.CreatePost(u.ID, "   ", "body", ""); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	p, err := s.CreatePost(u.ID, "Hello", "body", "")
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if p.FileUpload != models.DefaultPicture || p.Likes != 0 {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	conn := openDB(t)
	s := NewFeedService(conn)
	u := createUser(t, conn, "alice", "alice@example.com", "secret123")

	for _, title := range []string{"first", "second", "third"} {
		if _, err := s.CreatePost(u.ID, title, "", ""); err != nil {
			t.Fatal(err)
		}
	}
	posts, err := s.ListPosts()
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 3 || posts[0].Title != "third" || posts[2].Title != "first" {
		t.Fatalf("unexpected order: %+v", posts)
	}
	if posts[0].Creator.Username != "alice" {
		t.Errorf("creator not loaded: %+v", posts[0].Creator)
	}
}

func TestAddComment(t *testing.T) {
	conn := openDB(t)
	s := NewFeedService(conn)
	u := createUser(t, conn, "alice", "alice@example.com", "secret123")
	p, _ := s.CreatePost(u.ID, "Hello", "", "")

	if _, err := s.AddComment(p.ID, u.ID, ""); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
	if _, err := s.AddComment(p.ID+100, u.ID, "hi"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound, got %v", err)
	}
	for _, c := range []string{"one", "two"} {
		if _, err := s.AddComment(p.ID, u.ID, c); err != nil {
			t.Fatalf("AddComment: %v", err)
		}
	}

	got, err := s.GetPost(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Comments) != 2 || got.Comments[0].Content != "two" {
		t.Fatalf("expected newest comment first, got %+v", got.Comments)
	}
	if got.Comments[0].User.Username != "alice" {
		t.Errorf("comment author not loaded")
	}
	if _, err := s.GetPost(p.ID + 100); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound, got %v", err)
	}
}

func TestAddLikeIsIdempotent(t *testing.T) {
	conn := openDB(t)
	s := NewFeedService(conn)
	alice := createUser(t, conn, "alice", "alice@example.com", "secret123")
	bob := createUser(t, conn, "bobby", "bob@example.com", "secret123")
	p, _ := s.CreatePost(alice.ID, "Hello", "", "")

	likes, added, err := s.AddLike(p.ID, bob.ID)
	if err != nil || !added || likes != 1 {
		t.Fatalf("first like: likes=%d added=%v err=%v", likes, added, err)
	}
	likes, added, err = s.AddLike(p.ID, bob.ID)
	if err != nil || added || likes != 1 {
		t.Fatalf("second like should be a no-op: likes=%d added=%v err=%v", likes, added, err)
	}
	likes, added, err = s.AddLike(p.ID, alice.ID)
	if err != nil || !added || likes != 2 {
		t.Fatalf("other user: likes=%d added=%v err=%v", likes, added, err)
	}

	var rows int64
	conn.Model(&models.Like{}).Where("post_id = ?", p.ID).Count(&rows)
	if rows != 2 {
		t.Errorf("likes rows = %d, want 2", rows)
	}
	if ok, _ := s.HasLiked(p.ID, bob.ID); !ok {
		t.Error("HasLiked should be true")
	}
	if _, _, err := s.AddLike(p.ID+100, bob.ID); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound, got %v", err)
	}
}

func TestAddLikeConcurrentSameUser(t *testing.T) {
	conn := openDB(t)
	s := NewFeedService(conn)
	alice := createUser(t, conn, "alice", "alice@example.com", "secret123")
	p, _ := s.CreatePost(alice.ID, "Hello", "", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.AddLike(p.ID, alice.ID); err != nil {
				t.Errorf("AddLike: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetPost(p.ID)
	if got.Likes != 1 {
		t.Errorf("likes = %d, want 1", got.Likes)
	}
}

func TestLivePosts(t *testing.T) {
	conn := openDB(t)
	s := NewFeedService(conn)
	u := createUser(t, conn, "alice", "alice@example.com", "secret123")

	if _, err := s.CreateLivePost(u.ID, "  "); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
	for _, c := range []string{"a", "b", "c"} {
		lp, err := s.CreateLivePost(u.ID, c)
		if err != nil {
			t.Fatal(err)
		}
		if lp.User.Username != "alice" {
			t.Errorf("user not loaded on live post")
		}
	}
	recent, err := s.RecentLivePosts(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].Content != "c" {
		t.Fatalf("unexpected recent posts: %+v", recent)
	}
}
