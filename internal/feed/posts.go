package feed

import (
	"fmt"

	"go.uber.org/zap"
)

// executePost creates a post. All preconditions are checked before the first
// mutation; parentID validity is checked exactly once, here, and the reply
// forest never needs revalidation afterwards.
func (e *Engine) executePost(txID int, u *user, action Action, timeMs int64) error {
	var parent *post
	if action.ParentID != nil {
		parent = e.lookupPost(*action.ParentID)
		if parent == nil {
			return fmt.Errorf("%w: parent post %d", ErrNotFound, *action.ParentID)
		}
	}
	if err := e.validatePostContent(action.Content); err != nil {
		return err
	}

	id := len(e.posts)
	rootID := id
	if parent != nil {
		// The parent's root is itself a root, so there is never more than
		// one level of indirection.
		rootID = parent.rootID
	}

	p := &post{
		id:       id,
		uid:      u.uid,
		timeMs:   timeMs,
		content:  action.Content,
		rootID:   rootID,
		likedBy:  make(map[int]struct{}),
		parentID: action.ParentID,
	}

	e.posts = append(e.posts, p)
	u.posts = append(u.posts, p)
	// A root's replies list holds the whole thread, root included.
	e.posts[rootID].replies = append(e.posts[rootID].replies, p)

	if parent != nil {
		parent.nDirectReplies++
		e.notifyReply(txID, p, parent, timeMs)
	}

	postsTotal.Inc()
	e.logger.Info("new post",
		zap.Int("id", id),
		zap.Int("uid", u.uid),
		zap.Int("rootID", rootID),
	)
	return nil
}

// executeLike adds u to the post's liker set.
func (e *Engine) executeLike(txID int, u *user, postID int, timeMs int64) error {
	p := e.lookupPost(postID)
	if p == nil {
		return fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}
	if _, already := p.likedBy[u.uid]; already {
		return fmt.Errorf("%w: uid %d already liked post %d", ErrDuplicate, u.uid, postID)
	}

	p.likedBy[u.uid] = struct{}{}
	p.likers = append(p.likers, u.uid)
	u.likedPosts = append(u.likedPosts, postID)

	likesTotal.Inc()
	e.notifyLike(txID, p, u.uid, timeMs)
	return nil
}

// executeUnlike is the exact inverse of executeLike.
func (e *Engine) executeUnlike(u *user, postID int) error {
	p := e.lookupPost(postID)
	if p == nil {
		return fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}
	if _, liked := p.likedBy[u.uid]; !liked {
		return fmt.Errorf("%w: uid %d has not liked post %d", ErrNotFound, u.uid, postID)
	}

	delete(p.likedBy, u.uid)
	p.likers = removeInt(p.likers, u.uid)
	u.likedPosts = removeInt(u.likedPosts, postID)

	e.retractLikeNote(p, u.uid)
	return nil
}

// executeSaveProfile replaces the user's profile after validation.
func (e *Engine) executeSaveProfile(u *user, profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("%w: saveProfile without profile", ErrInvalidContent)
	}
	if err := e.validateProfile(*profile); err != nil {
		return err
	}
	u.profile = *profile
	return nil
}

// removeInt removes the first occurrence of v, preserving order.
func removeInt(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i:i], s[i+1:]...)
		}
	}
	return s
}
