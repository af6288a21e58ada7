package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "gas leak reported at the meter", "gas leak reported at the meter"},
		{"strips tags", "<b>urgent</b> callback", "urgent callback"},
		{"strips encoded tags", "&lt;script&gt;alert(1)&lt;/script&gt;note", "alert(1)note"},
		{"trims whitespace", "  padded remark  ", "padded remark"},
		{"empty stays empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Fatalf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
