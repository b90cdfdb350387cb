package model

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// LikeKind names what a Like points at.
type LikeKind string

const (
	LikeVideo   LikeKind = "video"
	LikeComment LikeKind = "comment"
	LikeTweet   LikeKind = "tweet"
)

// Valid reports whether k is one of the three likeable kinds.
func (k LikeKind) Valid() bool {
	switch k {
	case LikeVideo, LikeComment, LikeTweet:
		return true
	}
	return false
}

// LikeTarget is exactly one likeable entity: a kind plus that entity's id.
type LikeTarget struct {
	Kind LikeKind
	ID   string
}

func (t LikeTarget) String() string {
	return fmt.Sprintf("%s/%s", t.Kind, t.ID)
}

type Like struct {
	ID        string
	Target    LikeTarget
	LikedBy   string
	CreatedAt time.Time
}

// MarshalJSON writes the target under a key named after its kind, e.g.
//
//	{"_id":"...","video":"<videoId>","likedBy":"...","createdAt":"..."}
func (l Like) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"_id":       l.ID,
		"likedBy":   l.LikedBy,
		"createdAt": l.CreatedAt,
	}
	if l.Target.Kind.Valid() {
		out[string(l.Target.Kind)] = l.Target.ID
	}
	return json.Marshal(out)
}
