package feed

import "fmt"

// notifyReply fans a new reply out to every unique author on its ancestor
// chain, excluding the replier. One notification per affected author, even
// when they own several ancestors.
func (e *Engine) notifyReply(txID int, reply, parent *post, timeMs int64) {
	notified := make(map[int]struct{})
	for p := parent; p != nil; {
		if p.uid != reply.uid {
			if _, dup := notified[p.uid]; !dup {
				notified[p.uid] = struct{}{}
				replyID := reply.id
				e.pushNote(e.users[p.uid], Notification{
					Type:        NoteReply,
					TxID:        txID,
					TimeMs:      timeMs,
					PostID:      p.id,
					UID:         reply.uid,
					ReplyPostID: &replyID,
				})
			}
		}
		if p.parentID == nil {
			break
		}
		p = e.posts[*p.parentID]
	}
}

// notifyLike notifies the liked post's author. Liking your own post is legal
// but does not self-notify.
func (e *Engine) notifyLike(txID int, p *post, actorUID int, timeMs int64) {
	if p.uid == actorUID {
		return
	}
	e.pushNote(e.users[p.uid], Notification{
		Type:   NoteLike,
		TxID:   txID,
		TimeMs: timeMs,
		PostID: p.id,
		UID:    actorUID,
	})
}

// pushNote prepends n to the target's ring, evicting the oldest entry past
// the capacity bound.
func (e *Engine) pushNote(target *user, n Notification) {
	target.notes = append([]Notification{n}, target.notes...)
	if len(target.notes) > e.cfg.NotificationCap {
		target.notes = target.notes[:e.cfg.NotificationCap]
	}
}

// retractLikeNote removes the most recent like notification for (post, actor)
// from the post author's ring, if still present. Unlike creates nothing; it
// takes back the like it reverses.
func (e *Engine) retractLikeNote(p *post, actorUID int) {
	author := e.users[p.uid]
	for i, n := range author.notes {
		if n.Type == NoteLike && n.PostID == p.id && n.UID == actorUID {
			author.notes = append(author.notes[:i:i], author.notes[i+1:]...)
			return
		}
	}
}

// LoadNotifications returns the viewer's notification screen, newest first,
// restricted to notifications with txID >= sinceTxID. Consecutive likes on
// the same post collapse into one summary listing all liking users; replies
// stay one row per reply.
func (e *Engine) LoadNotifications(viewerUID, sinceTxID int) ([]NoteSummary, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state == StateNew {
		return nil, ErrNotReady
	}
	u := e.lookupUser(viewerUID)
	if u == nil {
		return nil, fmt.Errorf("%w: uid %d", ErrNotFound, viewerUID)
	}

	summaries := []NoteSummary{}
	for _, n := range u.notes {
		if n.TxID < sinceTxID {
			continue
		}
		switch n.Type {
		case NoteLike:
			// Fold into the previous row when it is a like on the same post.
			if len(summaries) > 0 {
				last := &summaries[len(summaries)-1]
				if last.ReplyPost == nil && last.Post.ID == n.PostID {
					last.LikeUsers = append(last.LikeUsers, e.toPublicUser(e.users[n.UID]))
					continue
				}
			}
			summaries = append(summaries, NoteSummary{
				TxID:      n.TxID,
				TimeMs:    n.TimeMs,
				Post:      e.toPost(e.posts[n.PostID], viewerUID),
				LikeUsers: []PublicUser{e.toPublicUser(e.users[n.UID])},
			})
		case NoteReply:
			replyPost := e.toPost(e.posts[*n.ReplyPostID], viewerUID)
			summaries = append(summaries, NoteSummary{
				TxID:      n.TxID,
				TimeMs:    n.TimeMs,
				Post:      e.toPost(e.posts[n.PostID], viewerUID),
				ReplyPost: &replyPost,
			})
		}
	}
	return summaries, nil
}
