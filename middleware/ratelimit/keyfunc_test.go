package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultKeyFunc(t *testing.T) {
	tests := []struct {
		name    string
		opts    KeyOptions
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "trusted header first",
			opts:    NewsletterKeyOptions(),
			headers: map[string]string{"CF-Connecting-IP": " 9.9.9.9 ", "X-Forwarded-For": "1.2.3.4"},
			want:    "9.9.9.9",
		},
		{
			name:    "first forwarded entry",
			opts:    NewsletterKeyOptions(),
			headers: map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8"},
			want:    "1.2.3.4",
		},
		{
			name:   "newsletter ignores remote addr",
			opts:   NewsletterKeyOptions(),
			remote: "10.0.0.9:5555",
			want:   "unknown",
		},
		{
			name:    "empty forwarded entry falls through",
			opts:    NewsletterKeyOptions(),
			headers: map[string]string{"X-Forwarded-For": " , 5.6.7.8"},
			want:    "unknown",
		},
		{
			name:    "forwarded ignored unless trusted",
			opts:    KeyOptions{UseRemoteAddr: true},
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4"},
			remote:  "10.0.0.9:5555",
			want:    "10.0.0.9",
		},
		{
			name:   "remote addr without port",
			opts:   KeyOptions{UseRemoteAddr: true},
			remote: "10.0.0.9",
			want:   "10.0.0.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "http://ambilab.com/api/newsletter", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := DefaultKeyFunc(tt.opts)(r); got != tt.want {
				t.Fatalf("key = %q, want %q", got, tt.want)
			}
		})
	}
}
