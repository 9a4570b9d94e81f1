package db

import (
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"
)

func TestContentKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     *api.Message
		kind    ContentKind
		ref     string
		matches bool
	}{
		{name: "nil", msg: nil},
		{name: "text only", msg: &api.Message{Text: "hi"}},
		{
			name: "photo picks largest",
			msg: &api.Message{Photo: []api.PhotoSize{
				{FileID: "small"}, {FileID: "medium"}, {FileID: "large"},
			}},
			kind: KindPhoto, ref: "large", matches: true,
		},
		{name: "video", msg: &api.Message{Video: &api.Video{FileID: "v"}}, kind: KindVideo, ref: "v", matches: true},
		{name: "document", msg: &api.Message{Document: &api.Document{FileID: "d"}}, kind: KindDocument, ref: "d", matches: true},
		{
			name: "animation wins over document",
			msg: &api.Message{
				Document:  &api.Document{FileID: "d"},
				Animation: &api.Animation{FileID: "a"},
			},
			kind: KindAnimation, ref: "a", matches: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, ref, ok := ContentKindOf(tt.msg)
			if ok != tt.matches || kind != tt.kind || ref != tt.ref {
				t.Fatalf("got (%q, %q, %v), want (%q, %q, %v)", kind, ref, ok, tt.kind, tt.ref, tt.matches)
			}
			if ok && !kind.Valid() {
				t.Fatalf("kind %q reported invalid", kind)
			}
		})
	}
}
