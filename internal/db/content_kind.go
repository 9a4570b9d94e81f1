package db

import (
	api "github.com/OvyFlash/telegram-bot-api"
)

// ContentKind tags the attachment type of a stored item. The set is closed;
// every switch over it is expected to cover all four values.
type ContentKind string

const (
	KindPhoto     ContentKind = "photo"
	KindVideo     ContentKind = "video"
	KindDocument  ContentKind = "document"
	KindAnimation ContentKind = "animation"
)

func (k ContentKind) Valid() bool {
	switch k {
	case KindPhoto, KindVideo, KindDocument, KindAnimation:
		return true
	}
	return false
}

// ContentKindOf classifies a message attachment and returns its file reference.
// Animations are checked before documents since Telegram fills both for GIFs.
// Photos resolve to the largest size.
func ContentKindOf(msg *api.Message) (ContentKind, string, bool) {
	if msg == nil {
		return "", "", false
	}
	switch {
	case len(msg.Photo) > 0:
		return KindPhoto, msg.Photo[len(msg.Photo)-1].FileID, true
	case msg.Video != nil:
		return KindVideo, msg.Video.FileID, true
	case msg.Animation != nil:
		return KindAnimation, msg.Animation.FileID, true
	case msg.Document != nil:
		return KindDocument, msg.Document.FileID, true
	}
	return "", "", false
}
