package chat

import (
	"encoding/json"
	"testing"
	"time"

	"DChat/tools/errs"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"typing","ack":7,"data":{"chatId":"u2","userId":"u1","isTyping":true}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if f.Event != EventTyping || f.Ack != 7 {
		t.Fatalf("unexpected frame: %+v", f)
	}

	p, err := Decode[TypingPayload](f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if p.ChatID != "u2" || p.UserID != "u1" || !p.IsTyping {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestParseFrameRejectsGarbage(t *testing.T) {
	cases := []string{
		`not json`,
		`{"data":{}}`, // 缺 event
		`[]`,
	}
	for _, raw := range cases {
		if _, err := ParseFrame([]byte(raw)); errs.Code(err) != errs.CodeValidation {
			t.Fatalf("raw=%q: want validation error, got %v", raw, err)
		}
	}
}

func TestDecodeMissingData(t *testing.T) {
	f := &Frame{Event: EventMessageSend}
	if _, err := Decode[SendPayload](f); errs.Code(err) != errs.CodeValidation {
		t.Fatalf("want validation error for empty data, got %v", err)
	}
}

func TestEncodeEventRoundTrip(t *testing.T) {
	at := time.Now().UTC().Truncate(time.Millisecond)
	raw, err := EncodeEvent(EventUserStatus, UserStatusPayload{UserID: "u1", Online: false, LastSeen: &at})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if f.Event != EventUserStatus {
		t.Fatalf("want %s, got %s", EventUserStatus, f.Event)
	}
	p, err := Decode[UserStatusPayload](f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if p.UserID != "u1" || p.Online || p.LastSeen == nil || !p.LastSeen.Equal(at) {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestEncodeAckCarriesSequence(t *testing.T) {
	raw, err := EncodeAck(42, AckPayload{OK: false, Code: errs.CodeConflict, Error: "Message conflict. Please try again."})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if f.Event != EventAck || f.Ack != 42 {
		t.Fatalf("unexpected ack frame: %+v", f)
	}
	var p AckPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		t.Fatalf("unmarshal payload failed: %v", err)
	}
	if p.OK || p.Code != errs.CodeConflict {
		t.Fatalf("unexpected ack payload: %+v", p)
	}
}
