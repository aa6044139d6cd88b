package feed_test

import (
	"testing"

	"github.com/dcposch/zucast/internal/feed"
)

func TestGlobalFeedLatestOrder(t *testing.T) {
	h := newHarness(t)
	h.initEmpty(t)
	a := h.register(t, "nA", "keyA")
	b := h.register(t, "nB", "keyB")

	t0 := h.post(t, a.UID, "keyA", "oldest thread", nil)
	h.nowMs += 60_000
	t1 := h.post(t, b.UID, "keyB", "newer thread", nil)
	h.nowMs += 60_000
	// A reply bumps the first thread to the top: latest orders by the
	// thread's most recent post.
	h.post(t, b.UID, "keyB", "bump", intPtr(t0))

	threads, err := h.eng.LoadGlobalFeed(-1, feed.SortLatest)
	if err != nil {
		t.Fatalf("LoadGlobalFeed: %v", err)
	}
	if got, want := threadRootIDs(threads), []int{t0, t1}; !equalInts(got, want) {
		t.Errorf("latest order = %v, want %v", got, want)
	}
	// Each entry carries its full thread.
	if got, want := postIDs(threads[0].Posts), []int{t0, 2}; !equalInts(got, want) {
		t.Errorf("bumped thread posts = %v, want %v", got, want)
	}
}

func TestGlobalFeedHotFavorsLikes(t *testing.T) {
	h := newHarness(t)
	h.initEmpty(t)
	a := h.register(t, "nA", "keyA")
	likers := make([]feed.PublicUser, 0, 10)
	keys := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		key := string(rune('b'+i)) + "key"
		u := h.register(t, "n"+key, key)
		likers = append(likers, u)
		keys = append(keys, key)
	}

	// Two threads posted at the same instant, so recency cancels out and
	// only likes separate them: ten likes is worth one full recency period.
	plain := h.post(t, a.UID, "keyA", "no likes", nil)
	popular := h.post(t, a.UID, "keyA", "many likes", nil)
	for i, u := range likers {
		if err := h.like(u.UID, keys[i], popular); err != nil {
			t.Fatalf("like %d: %v", i, err)
		}
	}

	threads, err := h.eng.LoadGlobalFeed(-1, feed.SortHot)
	if err != nil {
		t.Fatalf("LoadGlobalFeed: %v", err)
	}
	if got, want := threadRootIDs(threads), []int{popular, plain}; !equalInts(got, want) {
		t.Errorf("hot order = %v, want %v", got, want)
	}
}

func TestGlobalFeedSelfBoost(t *testing.T) {
	h := newHarness(t)
	h.initEmpty(t)
	a := h.register(t, "nA", "keyA")
	b := h.register(t, "nB", "keyB")
	c := h.register(t, "nC", "keyC")

	// B's thread has likes; A's is fresh and unliked, so it loses on hot
	// score alone.
	popular := h.post(t, b.UID, "keyB", "established", nil)
	if err := h.like(a.UID, "keyA", popular); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := h.like(c.UID, "keyC", popular); err != nil {
		t.Fatalf("like: %v", err)
	}
	h.nowMs += 60_000
	fresh := h.post(t, a.UID, "keyA", "just posted", nil)

	anon, err := h.eng.LoadGlobalFeed(-1, feed.SortHot)
	if err != nil {
		t.Fatalf("LoadGlobalFeed(anon): %v", err)
	}
	if anon[0].RootID != popular {
		t.Errorf("anonymous view leads with %d, want %d", anon[0].RootID, popular)
	}

	// A sees their own fresh post first regardless.
	mine, err := h.eng.LoadGlobalFeed(a.UID, feed.SortHot)
	if err != nil {
		t.Fatalf("LoadGlobalFeed(self): %v", err)
	}
	if mine[0].RootID != fresh {
		t.Errorf("self view leads with %d, want own fresh post %d", mine[0].RootID, fresh)
	}

	// An hour later the boost is gone even for the author.
	h.nowMs += 61 * 60_000
	later, err := h.eng.LoadGlobalFeed(a.UID, feed.SortHot)
	if err != nil {
		t.Fatalf("LoadGlobalFeed(later): %v", err)
	}
	if later[0].RootID != popular {
		t.Errorf("after boost expiry leads with %d, want %d", later[0].RootID, popular)
	}
}

func TestGlobalFeedCapsThreads(t *testing.T) {
	h := newHarnessCfg(t, func(cfg *feed.Config) {
		cfg.FeedMaxThreads = 3
	})
	h.initEmpty(t)
	a := h.register(t, "nA", "keyA")

	for i := 0; i < 5; i++ {
		h.nowMs += 1_000
		h.post(t, a.UID, "keyA", "thread", nil)
	}

	threads, err := h.eng.LoadGlobalFeed(-1, feed.SortLatest)
	if err != nil {
		t.Fatalf("LoadGlobalFeed: %v", err)
	}
	if len(threads) != 3 {
		t.Fatalf("got %d threads, want 3", len(threads))
	}
	// The newest three survive the cap.
	if got, want := threadRootIDs(threads), []int{4, 3, 2}; !equalInts(got, want) {
		t.Errorf("capped feed = %v, want %v", got, want)
	}
}

func TestGlobalFeedWindowSkipsOldThreads(t *testing.T) {
	h := newHarnessCfg(t, func(cfg *feed.Config) {
		cfg.FeedWindow = 2
	})
	h.initEmpty(t)
	a := h.register(t, "nA", "keyA")

	old := h.post(t, a.UID, "keyA", "falls out of the window", nil)
	h.nowMs += 1_000
	h.post(t, a.UID, "keyA", "second", nil)
	h.nowMs += 1_000
	h.post(t, a.UID, "keyA", "third", nil)

	threads, err := h.eng.LoadGlobalFeed(-1, feed.SortLatest)
	if err != nil {
		t.Fatalf("LoadGlobalFeed: %v", err)
	}
	for _, th := range threads {
		if th.RootID == old {
			t.Errorf("thread %d should have aged out of the feed window", old)
		}
	}
	if len(threads) != 2 {
		t.Errorf("got %d threads, want 2", len(threads))
	}
}

func TestGlobalFeedDeduplicatesThreads(t *testing.T) {
	h := newHarness(t)
	h.initEmpty(t)
	a := h.register(t, "nA", "keyA")
	b := h.register(t, "nB", "keyB")

	root := h.post(t, a.UID, "keyA", "root", nil)
	h.post(t, b.UID, "keyB", "reply one", intPtr(root))
	h.post(t, a.UID, "keyA", "reply two", intPtr(root))

	threads, err := h.eng.LoadGlobalFeed(-1, feed.SortLatest)
	if err != nil {
		t.Fatalf("LoadGlobalFeed: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("thread with replies appeared %d times, want 1", len(threads))
	}
	if got, want := postIDs(threads[0].Posts), []int{0, 1, 2}; !equalInts(got, want) {
		t.Errorf("thread posts = %v, want %v", got, want)
	}
}

func TestParseSortAlgo(t *testing.T) {
	cases := []struct {
		in   string
		want feed.SortAlgo
	}{
		{"hot", feed.SortHot},
		{"latest", feed.SortLatest},
		{"", feed.SortHot},
		{"bogus", feed.SortHot},
	}
	for _, tc := range cases {
		if got := feed.ParseSortAlgo(tc.in); got != tc.want {
			t.Errorf("ParseSortAlgo(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func threadRootIDs(threads []feed.Thread) []int {
	ids := make([]int, len(threads))
	for i, th := range threads {
		ids[i] = th.RootID
	}
	return ids
}
