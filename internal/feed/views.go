package feed

import (
	"fmt"
	"sort"
)

// LoadGlobalFeed derives the ranked global feed for a viewer. It windows the
// most recent posts, keeps one entry per thread (its most recent activity),
// caps the thread count, materializes each surviving thread in full, and
// orders by the requested algorithm. viewerUID < 0 means logged out.
func (e *Engine) LoadGlobalFeed(viewerUID int, algo SortAlgo) ([]Thread, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state == StateNew {
		return nil, ErrNotReady
	}

	start := len(e.posts) - e.cfg.FeedWindow
	if start < 0 {
		start = 0
	}

	// Newest to oldest, first occurrence per thread wins.
	seen := make(map[int]struct{})
	threads := []Thread{}
	for i := len(e.posts) - 1; i >= start && len(threads) < e.cfg.FeedMaxThreads; i-- {
		rootID := e.posts[i].rootID
		if _, dup := seen[rootID]; dup {
			continue
		}
		seen[rootID] = struct{}{}
		threads = append(threads, e.toThread(e.posts[rootID], viewerUID))
	}

	score := threadScorer(algo)
	nowMs := e.cfg.Now().UnixMilli()
	sort.SliceStable(threads, func(i, j int) bool {
		si := score(threads[i]) + selfBoost(threads[i], viewerUID, nowMs)
		sj := score(threads[j]) + selfBoost(threads[j], viewerUID, nowMs)
		return si > sj
	})
	return threads, nil
}

// LoadThread returns the focal post's thread: its ancestors (root to parent)
// and all of its descendants, in the thread's insertion order.
func (e *Engine) LoadThread(viewerUID, postID int) (Thread, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state == StateNew {
		return Thread{}, ErrNotReady
	}
	focal := e.lookupPost(postID)
	if focal == nil {
		return Thread{}, fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}

	// Ancestors of the focal post, focal included.
	ancestors := make(map[int]struct{})
	for p := focal; ; {
		ancestors[p.id] = struct{}{}
		if p.parentID == nil {
			break
		}
		p = e.posts[*p.parentID]
	}

	// Descendant-ness propagates down the insertion-ordered reply list: a
	// reply is a descendant iff its parent already is, seeded with the focal
	// post. Output keeps that order — chronological, never re-sorted.
	descendants := map[int]struct{}{focal.id: {}}
	root := e.posts[focal.rootID]
	posts := []Post{}
	for _, p := range root.replies {
		if p.parentID != nil {
			if _, ok := descendants[*p.parentID]; ok {
				descendants[p.id] = struct{}{}
			}
		}
		_, anc := ancestors[p.id]
		_, desc := descendants[p.id]
		if anc || desc {
			posts = append(posts, e.toPost(p, viewerUID))
		}
	}
	return Thread{RootID: root.id, Posts: posts}, nil
}

// LoadPost returns a single post.
func (e *Engine) LoadPost(viewerUID, postID int) (Post, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state == StateNew {
		return Post{}, ErrNotReady
	}
	p := e.lookupPost(postID)
	if p == nil {
		return Post{}, fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}
	return e.toPost(p, viewerUID), nil
}

// LoadIdentity returns the public view of an identity, for session hydration.
func (e *Engine) LoadIdentity(uid int) (PublicUser, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state == StateNew {
		return PublicUser{}, ErrNotReady
	}
	u := e.lookupUser(uid)
	if u == nil {
		return PublicUser{}, fmt.Errorf("%w: uid %d", ErrNotFound, uid)
	}
	return e.toPublicUser(u), nil
}

// LoadUserPosts returns the user's top-level posts, newest first, one
// single-post thread per entry.
func (e *Engine) LoadUserPosts(viewerUID, uid int) ([]Thread, error) {
	return e.loadUserThreads(viewerUID, uid, func(p *post) bool {
		return p.parentID == nil
	})
}

// LoadUserReplies returns all the user's posts, replies included, newest first.
func (e *Engine) LoadUserReplies(viewerUID, uid int) ([]Thread, error) {
	return e.loadUserThreads(viewerUID, uid, func(*post) bool { return true })
}

func (e *Engine) loadUserThreads(viewerUID, uid int, keep func(*post) bool) ([]Thread, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state == StateNew {
		return nil, ErrNotReady
	}
	u := e.lookupUser(uid)
	if u == nil {
		return nil, fmt.Errorf("%w: uid %d", ErrNotFound, uid)
	}

	threads := []Thread{}
	for i := len(u.posts) - 1; i >= 0; i-- {
		p := u.posts[i]
		if !keep(p) {
			continue
		}
		threads = append(threads, Thread{RootID: p.rootID, Posts: []Post{e.toPost(p, viewerUID)}})
	}
	return threads, nil
}

// LoadUserLikes returns the posts a user liked, most recently liked first.
func (e *Engine) LoadUserLikes(viewerUID, uid int) ([]Thread, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state == StateNew {
		return nil, ErrNotReady
	}
	u := e.lookupUser(uid)
	if u == nil {
		return nil, fmt.Errorf("%w: uid %d", ErrNotFound, uid)
	}

	threads := []Thread{}
	for i := len(u.likedPosts) - 1; i >= 0; i-- {
		p := e.posts[u.likedPosts[i]]
		threads = append(threads, Thread{RootID: p.rootID, Posts: []Post{e.toPost(p, viewerUID)}})
	}
	return threads, nil
}

// LoadLikers returns the users who like a post, most recent first.
func (e *Engine) LoadLikers(postID int) ([]PublicUser, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state == StateNew {
		return nil, ErrNotReady
	}
	p := e.lookupPost(postID)
	if p == nil {
		return nil, fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}

	likers := make([]PublicUser, 0, len(p.likers))
	for i := len(p.likers) - 1; i >= 0; i-- {
		likers = append(likers, e.toPublicUser(e.users[p.likers[i]]))
	}
	return likers, nil
}

// toThread materializes a root's full reply list.
// Caller holds at least the read lock.
func (e *Engine) toThread(root *post, viewerUID int) Thread {
	posts := make([]Post, len(root.replies))
	for i, p := range root.replies {
		posts[i] = e.toPost(p, viewerUID)
	}
	return Thread{RootID: root.id, Posts: posts}
}
