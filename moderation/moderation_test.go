package moderation

import "testing"

func TestContainsInappropriateContent(t *testing.T) {
	m := NewDefault("badword")

	cases := []struct {
		text string
		want bool
	}{
		{"Str0ng!Pass1234", false},
		{"Ann", false},
		{"you STUPID thing", true},
		{"st.u.p.i.d", true},
		{"5tup1d", true},
		{"my-b4dw0rd-here", true},
		{"", false},
	}
	for _, tc := range cases {
		if got := m.ContainsInappropriateContent(tc.text); got != tc.want {
			t.Fatalf("ContainsInappropriateContent(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestValidateName(t *testing.T) {
	m := NewDefault()

	cases := []struct {
		name string
		kind NameKind
		want bool
	}{
		{"Ann", KindUsername, true},
		{"ann_lee.99", KindUsername, true},
		{"Ann Lee", KindUsername, true},
		{"O'Brien", KindDisplayName, true},
		{"O'Brien", KindUsername, false},
		{"Zoë", KindDisplayName, true},
		{"A", KindUsername, false},
		{"", KindUsername, false},
		{"   ", KindUsername, false},
		{"<b>Ann</b>", KindUsername, false},
		{"Ann<script>", KindDisplayName, false},
		{"ann@school", KindUsername, false},
		{"thisnameiswaytoolongforanyonetotype", KindUsername, false},
		{"LoserKid", KindUsername, false},
	}
	for _, tc := range cases {
		res := m.ValidateName(tc.name, tc.kind)
		if res.IsValid != tc.want {
			t.Fatalf("ValidateName(%q, %s) = %+v, want valid=%v", tc.name, tc.kind, res, tc.want)
		}
		if !res.IsValid && res.Error == "" {
			t.Fatalf("ValidateName(%q) returned no message", tc.name)
		}
	}
}

func TestMarkupMessage(t *testing.T) {
	res := NewDefault().ValidateName("<i>x</i>", KindDisplayName)
	if res.IsValid || res.Error != "Name cannot contain markup" {
		t.Fatalf("unexpected result %+v", res)
	}
}
