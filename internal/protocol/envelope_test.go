package protocol

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		body Body
	}{
		{"hello", &Hello{Username: "ada"}},
		{"back", &Back{Token: "00000000-0000-0000-0000-000000000000"}},
		{"welcome", &Welcome{Username: "ada", Token: "tok"}},
		{"setup", &Setup{Chats: []ChatSetup{{Name: "general", Perms: Perms{{Kind: PermAny, RW: PermAll}}}}}},
		{"player_joined", &PlayerJoined{Username: "ada"}},
		{"player_left", &PlayerLeft{Username: "ada"}},
		{"chat_send", &ChatSend{ChatTarget: "general", ChatContent: "hi"}},
		{"chat_sent", &ChatSent{ChatSender: "ada", ChatTarget: "general", ChatContent: "hi"}},
		{"recap_head", &RecapHead{Count: 2, ChunkSz: 64}},
		{"recap_tail", &RecapTail{Start: 0, Msgs: []Envelope{{Seq: 0, Body: &PlayerJoined{Username: "ada"}}}}},
		{"error", &Error{Kind: "NoLogin", Info: "nope", Details: "{}"}},
		{"echo", &Echo{Opaque: json.RawMessage(`{"x":1}`)}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := Envelope{Seq: 7, Body: c.body}
			data, err := json.Marshal(in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			var out Envelope
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out.Seq != in.Seq {
				t.Errorf("seq = %d, want %d", out.Seq, in.Seq)
			}
			if out.Body.Tag() != c.body.Tag() {
				t.Errorf("tag = %q, want %q", out.Body.Tag(), c.body.Tag())
			}

			roundTrip, err := json.Marshal(out)
			if err != nil {
				t.Fatalf("re-marshal: %v", err)
			}
			if string(roundTrip) != string(data) {
				t.Errorf("not stable: %s != %s", roundTrip, data)
			}
		})
	}
}

func TestEchoCarriesBareValueNotAnObjectWrapper(t *testing.T) {
	raw := []byte(`{"seq":3,"msg_type":"echo","data":"hi"}`)
	var out Envelope
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	echo, ok := out.Body.(*Echo)
	if !ok {
		t.Fatalf("body = %T, want *Echo", out.Body)
	}
	if string(echo.Opaque) != `"hi"` {
		t.Errorf("Opaque = %s, want %q", echo.Opaque, `"hi"`)
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("re-marshal = %s, want %s", data, raw)
	}
}

func TestEnvelopeUnknownTag(t *testing.T) {
	var out Envelope
	err := json.Unmarshal([]byte(`{"seq":0,"msg_type":"bogus","data":{}}`), &out)
	if err == nil {
		t.Fatal("expected an error for an unknown msg_type")
	}
	var tagErr *UnknownTagError
	if e, ok := err.(*UnknownTagError); !ok {
		t.Fatalf("error = %T, want *UnknownTagError", err)
	} else {
		tagErr = e
	}
	if tagErr.Tag != "bogus" {
		t.Errorf("Tag = %q, want %q", tagErr.Tag, "bogus")
	}
}

func TestCanView(t *testing.T) {
	readable := func(chat, username string) bool { return chat == "readable" && username == "bob" }

	cases := []struct {
		name     string
		body     Body
		username string
		want     bool
	}{
		{"global always visible", &PlayerJoined{Username: "ada"}, "bob", true},
		{"subject match", &ChatSent{ChatSender: "bob", ChatTarget: "locked"}, "bob", true},
		{"chat readable", &ChatSent{ChatSender: "ada", ChatTarget: "readable"}, "bob", true},
		{"chat not readable", &ChatSent{ChatSender: "ada", ChatTarget: "locked"}, "bob", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CanView(c.body, c.username, readable); got != c.want {
				t.Errorf("CanView = %v, want %v", got, c.want)
			}
		})
	}
}
