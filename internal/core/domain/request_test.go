package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func validRequest() RequestAttributes {
	return RequestAttributes{
		Domain:                "poc.kpn-dsh.com",
		Tenant:                "ajuc",
		APIKey:                "secret-api-key-1234",
		TokenAmount:           1,
		ConcurrentConnections: 1,
	}
}

func TestRequestAttributes_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RequestAttributes)
		want   error
	}{
		{"valid", func(r *RequestAttributes) {}, nil},
		{"valid claims", func(r *RequestAttributes) { r.Claims = json.RawMessage(`[{"action":"subscribe"}]`) }, nil},
		{"missing domain", func(r *RequestAttributes) { r.Domain = "" }, ErrMissingConfiguration},
		{"missing tenant", func(r *RequestAttributes) { r.Tenant = "" }, ErrMissingConfiguration},
		{"missing api key", func(r *RequestAttributes) { r.APIKey = "" }, ErrMissingConfiguration},
		{"zero amount", func(r *RequestAttributes) { r.TokenAmount = 0 }, ErrInvalidRequest},
		{"zero concurrency", func(r *RequestAttributes) { r.ConcurrentConnections = 0 }, ErrInvalidRequest},
		{"bad claims", func(r *RequestAttributes) { r.Claims = json.RawMessage(`{`) }, ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.modify(&r)
			err := r.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRequestAttributes_StringHidesKey(t *testing.T) {
	r := validRequest()
	for _, s := range []string{r.String(), fmt.Sprint(r), r.LogValue().String()} {
		if strings.Contains(s, r.APIKey) {
			t.Errorf("formatted request leaks api key: %q", s)
		}
	}
}
