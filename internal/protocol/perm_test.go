package protocol

import (
	"encoding/json"
	"testing"
)

func TestPermRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		perm Perm
		want string
	}{
		{"any", Perm{Kind: PermAny, RW: PermAll}, `{"any":{"rw":3}}`},
		{"user", Perm{Kind: PermUser, RW: PermRead, Name: "ada"}, `{"user":{"rw":1,"name":"ada"}}`},
		{"group", Perm{Kind: PermGroup, RW: PermWrite, Name: "mods"}, `{"group":{"rw":2,"name":"mods"}}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data, err := json.Marshal(c.perm)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != c.want {
				t.Errorf("marshal = %s, want %s", data, c.want)
			}

			var out Perm
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out != c.perm {
				t.Errorf("unmarshal = %+v, want %+v", out, c.perm)
			}
		})
	}
}

func TestPermsEffective(t *testing.T) {
	groups := map[string]bool{"mods": true}
	perms := Perms{
		{Kind: PermUser, RW: PermRead, Name: "ada"},
		{Kind: PermGroup, RW: PermWrite, Name: "mods"},
	}

	if got := perms.Effective("ada", groups); got != PermAll {
		t.Errorf("ada (also in mods)'s effective rw = %d, want %d", got, PermAll)
	}
	if got := perms.Effective("bob", groups); got != PermWrite {
		t.Errorf("bob (in mods)'s effective rw = %d, want %d", got, PermWrite)
	}
	if got := perms.Effective("eve", nil); got != 0 {
		t.Errorf("eve's effective rw = %d, want 0", got)
	}
}

func TestPermUnmarshalRejectsMultiKey(t *testing.T) {
	var p Perm
	err := json.Unmarshal([]byte(`{"user":{"rw":1,"name":"a"},"group":{"rw":2,"name":"b"}}`), &p)
	if err == nil {
		t.Fatal("expected an error for a multi-key perm object")
	}
}
