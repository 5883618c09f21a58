package tutor

import "testing"

func TestTurnRequestValidate(t *testing.T) {
	audio := &InputBlob{MIMEType: "audio/wav", Data: []byte{1, 2}}
	tests := []struct {
		name string
		req  TurnRequest
		ok   bool
	}{
		{"text turn", TurnRequest{UserID: "u", SessionID: "s", UserMessage: "hi"}, true},
		{"audio turn", TurnRequest{UserID: "u", SessionID: "s", Audio: audio}, true},
		{"lesson start", TurnRequest{UserID: "u", SessionID: "s", UserMessage: LessonStart}, true},
		{"no user", TurnRequest{SessionID: "s", UserMessage: "hi"}, false},
		{"no session", TurnRequest{UserID: "u", UserMessage: "hi"}, false},
		{"empty turn", TurnRequest{UserID: "u", SessionID: "s"}, false},
		{"empty audio", TurnRequest{UserID: "u", SessionID: "s", Audio: &InputBlob{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestInputBlob(t *testing.T) {
	var b *InputBlob
	if b.blob() != nil {
		t.Error("nil blob produced content")
	}
	if (&InputBlob{MIMEType: "audio/wav"}).blob() != nil {
		t.Error("empty blob produced content")
	}
	got := (&InputBlob{MIMEType: "audio/wav", Data: []byte{1}}).blob()
	if got == nil || got.MIMEType != "audio/wav" {
		t.Errorf("blob() = %+v", got)
	}
}
