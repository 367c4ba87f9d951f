package horosafe

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		url          string
		allowPrivate bool
		wantErr      error
	}{
		{"https://93.184.216.34/summarize", false, nil},
		{"http://10.0.0.1/summarize", true, nil},
		{"http://127.0.0.1:8080/summarize", true, nil},
		{"ftp://93.184.216.34/x", true, ErrUnsafeScheme},
		{"javascript:alert(1)", false, ErrUnsafeScheme},
		{"http://127.0.0.1/admin", false, ErrPrivateAddress},
		{"http://10.0.0.1/internal", false, ErrPrivateAddress},
		{"http://192.168.1.1/api", false, ErrPrivateAddress},
		{"http://172.20.0.5/api", false, ErrPrivateAddress},
		{"http://[::1]/api", false, ErrPrivateAddress},
		{"http://169.254.169.254/latest", false, ErrPrivateAddress},
	}
	for _, tt := range tests {
		err := ValidateEndpoint(tt.url, tt.allowPrivate)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateEndpoint(%q, %v) = %v, want %v", tt.url, tt.allowPrivate, err, tt.wantErr)
		}
	}
	if err := ValidateEndpoint("http:///nohost", true); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestValidateIdentifier(t *testing.T) {
	good := []string{"sess_0f8c2a1e-1b7d-4c8e-9a51-2d3b4c5d6e7f", "doc_1", "a.b-c"}
	for _, s := range good {
		if err := ValidateIdentifier(s); err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v", s, err)
		}
	}
	bad := []string{"", "a b", "../etc", "id;drop", "x/y", strings.Repeat("a", MaxIdentifierLen+1)}
	for _, s := range bad {
		if err := ValidateIdentifier(s); !errors.Is(err, ErrBadIdentifier) {
			t.Errorf("ValidateIdentifier(%q) = %v, want ErrBadIdentifier", s, err)
		}
	}
}

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 5)
	if err != nil || string(data) != "hello" {
		t.Fatalf("got %q, %v", data, err)
	}
	if _, err := LimitedReadAll(strings.NewReader("hello!"), 5); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}
