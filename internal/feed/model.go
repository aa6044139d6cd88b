package feed

import "fmt"

// TxType discriminates the two kinds of log entries.
type TxType string

const (
	// TxAddKey binds a signing key to an anonymous identity via a
	// group-membership proof.
	TxAddKey TxType = "addKey"
	// TxAct is a signed application action (post, like, profile edit).
	TxAct TxType = "act"
)

// Transaction is a single append-only log entry. The log position (0-based)
// is its permanent identifier. Entries are never mutated or removed.
type Transaction struct {
	Type   TxType `json:"type"`
	TimeMs int64  `json:"timeMs"`

	// PubKeyHex is the raw hex-encoded public key: the key being registered
	// for addKey, or the signing key for act.
	PubKeyHex string `json:"pubKeyHex"`

	// PCD is the serialized membership proof. addKey only.
	PCD string `json:"pcd,omitempty"`

	// UID, Signature and ActionJSON are set for act transactions.
	// The signature covers the exact ActionJSON bytes.
	UID        int    `json:"uid"`
	Signature  string `json:"signature,omitempty"`
	ActionJSON string `json:"actionJSON,omitempty"`
}

// Action is the decoded payload of an act transaction. Unknown types are
// ignored on execution so old engines can replay logs written by newer ones.
type Action struct {
	Type     string   `json:"type"`
	ParentID *int     `json:"parentID,omitempty"`
	Content  string   `json:"content,omitempty"`
	PostID   int      `json:"postID"`
	Profile  *Profile `json:"profile,omitempty"`
}

// Action types understood by this engine.
const (
	ActionPost        = "post"
	ActionLike        = "like"
	ActionUnlike      = "unlike"
	ActionSaveProfile = "saveProfile"
)

// Profile is the only mutable part of an identity.
type Profile struct {
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// PublicUser is the API-facing view of an identity, without signing keys or
// rate-limit bookkeeping.
type PublicUser struct {
	UID           int     `json:"uid"`
	NullifierHash string  `json:"nullifierHash"`
	Profile       Profile `json:"profile"`
}

// Post is the API-facing view of a post, hydrated for a specific viewer.
type Post struct {
	ID      int        `json:"id"`
	User    PublicUser `json:"user"`
	TimeMs  int64      `json:"timeMs"`
	Content string     `json:"content"`
	// RootID is the id of this post's thread root (itself, if top-level).
	RootID   int  `json:"rootID"`
	ParentID *int `json:"parentID,omitempty"`
	// ParentUID is the author of the parent post, if this is a reply.
	ParentUID *int `json:"parentUID,omitempty"`
	// Liked reports whether the viewing user liked this post.
	Liked          bool `json:"liked"`
	NDirectReplies int  `json:"nDirectReplies"`
	NLikes         int  `json:"nLikes"`
}

// Thread is a root post plus replies, in the order posted.
type Thread struct {
	RootID int    `json:"rootID"`
	Posts  []Post `json:"posts"`
}

// Notification types stored in a user's ring. Unlike never stores an entry;
// it retracts the matching like.
const (
	NoteReply = "reply"
	NoteLike  = "like"
)

// Notification records a reply or like event affecting one of a user's posts.
type Notification struct {
	Type   string `json:"type"`
	TxID   int    `json:"txID"`
	TimeMs int64  `json:"timeMs"`
	// PostID is the affected post, owned by the notified user.
	PostID int `json:"postID"`
	// UID is the acting user (the replier or liker).
	UID int `json:"uid"`
	// ReplyPostID is set for reply notifications.
	ReplyPostID *int `json:"replyPostID,omitempty"`
}

// NoteSummary is one row on the notifications screen. Consecutive likes on
// the same post collapse into a single row listing all liking users.
type NoteSummary struct {
	TxID      int          `json:"txID"`
	TimeMs    int64        `json:"timeMs"`
	Post      Post         `json:"post"`
	ReplyPost *Post        `json:"replyPost,omitempty"`
	LikeUsers []PublicUser `json:"likeUsers,omitempty"`
}

// PhaseStatus tracks one startup phase (load or validate).
type PhaseStatus struct {
	Done      bool   `json:"done"`
	ElapsedMs int64  `json:"elapsedMs"`
	Checked   int    `json:"checked,omitempty"`
	Failed    int    `json:"failed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Status is the operator-facing health snapshot.
type Status struct {
	State           string      `json:"state"`
	NumTransactions int         `json:"nTransactions"`
	NumUsers        int         `json:"nUsers"`
	NumPosts        int         `json:"nPosts"`
	Init            PhaseStatus `json:"init"`
	Validate        PhaseStatus `json:"validate"`
}

// SortAlgo selects the global feed ordering.
type SortAlgo string

const (
	SortHot    SortAlgo = "hot"
	SortLatest SortAlgo = "latest"
)

// ParseSortAlgo returns the algo for s, or the default when missing/unknown.
func ParseSortAlgo(s string) SortAlgo {
	switch SortAlgo(s) {
	case SortHot, SortLatest:
		return SortAlgo(s)
	default:
		return SortHot
	}
}

// ProfileColors is the fixed palette users pick from. Generated as a 4x8 grid
// of hues and lightness levels; the last column of each row is grey.
var ProfileColors = func() []string {
	colors := make([]string, 0, 32)
	for i := 0; i < 4; i++ {
		for j := 0; j < 8; j++ {
			hue, sat := j*48, 60-i*10
			if j == 7 {
				hue, sat = 0, 0
			}
			light := 85 - i*10
			colors = append(colors, fmt.Sprintf("hsl(%d, %d%%, %d%%)", hue, sat, light))
		}
	}
	return colors
}()

// DefaultProfile is assigned to newly created identities.
func DefaultProfile() Profile {
	return Profile{Emoji: "🥚", Color: ProfileColors[2]}
}
