package sanitize

import "testing"

func TestName(t *testing.T) {
	tests := []struct {
		input, expected string
	}{
		{"alice", "alice"},
		{"al ice", "alice"},
		{"bob.dev-2", "bob.dev-2"},
		{"<script>", "script"},
		{"!!!", ""},
	}
	for _, tc := range tests {
		if actual := Name(tc.input); actual != tc.expected {
			t.Errorf("Got: %q; Expected: %q", actual, tc.expected)
		}
	}
}

func TestData(t *testing.T) {
	tests := []struct {
		input, expected string
	}{
		{"hello world", "hello world"},
		{"  padded\t", "padded"},
		{"a\tb\r\nc", "a b c"},
		{"bell\x07", "bell"},
		{"bad\xffbyte", "badbyte"},
		{"héllo", "héllo"},
	}
	for _, tc := range tests {
		if actual := Data(tc.input); actual != tc.expected {
			t.Errorf("Got: %q; Expected: %q", actual, tc.expected)
		}
	}
}
