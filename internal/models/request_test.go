package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRequest_Validate(t *testing.T) {
	negOne := -1
	zero := int64(0)

	tests := []struct {
		name      string
		req       FetchRequest
		wantField string
	}{
		{"valid minimal", FetchRequest{URL: "https://example.com/"}, ""},
		{"valid head", FetchRequest{URL: "https://example.com/", Method: "head"}, ""},
		{"missing url", FetchRequest{}, "url"},
		{"whitespace url", FetchRequest{URL: "   "}, "url"},
		{"post rejected", FetchRequest{URL: "https://example.com/", Method: "POST"}, "method"},
		{"delete rejected", FetchRequest{URL: "https://example.com/", Method: "DELETE"}, "method"},
		{"negative redirects", FetchRequest{URL: "https://example.com/", MaxRedirects: &negOne}, "max_redirects"},
		{"zero max bytes", FetchRequest{URL: "https://example.com/", MaxBytes: &zero}, "max_bytes"},
		{"malformed timeout", FetchRequest{URL: "https://example.com/", Timeout: "soon"}, "timeout"},
		{"negative timeout", FetchRequest{URL: "https://example.com/", Timeout: "-5s"}, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			var fieldErr *FieldError
			require.True(t, errors.As(err, &fieldErr))
			assert.Equal(t, tt.wantField, fieldErr.Field)
		})
	}
}

func TestFetchRequest_Normalize(t *testing.T) {
	req := FetchRequest{URL: "  https://example.com/  ", Method: "head"}
	req.Normalize()

	assert.Equal(t, "https://example.com/", req.URL)
	assert.Equal(t, "HEAD", req.Method)

	empty := FetchRequest{URL: "https://example.com/"}
	empty.Normalize()
	assert.Equal(t, "GET", empty.Method)
}

func TestFetchRequest_ParsedTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), (&FetchRequest{}).ParsedTimeout())
	assert.Equal(t, 5*time.Second, (&FetchRequest{Timeout: "5s"}).ParsedTimeout())
	assert.Equal(t, time.Duration(0), (&FetchRequest{Timeout: "bogus"}).ParsedTimeout())
}

func TestEchoRequest_Validate(t *testing.T) {
	assert.NoError(t, (&EchoRequest{Message: "hello"}).Validate())
	assert.Error(t, (&EchoRequest{}).Validate())
	assert.Error(t, (&EchoRequest{Message: "   "}).Validate())
	assert.Error(t, (&EchoRequest{Message: strings.Repeat("a", 1025)}).Validate())
	assert.NoError(t, (&EchoRequest{Message: strings.Repeat("a", 1024)}).Validate())
}

func TestListEventsRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ListEventsRequest{}).Validate())
	assert.NoError(t, (&ListEventsRequest{Kind: EventKindRateLimited}).Validate())
	assert.Error(t, (&ListEventsRequest{Kind: "bogus"}).Validate())
	assert.Error(t, (&ListEventsRequest{Limit: -1}).Validate())
	assert.Error(t, (&ListEventsRequest{Offset: -1}).Validate())
}

func TestListEventsRequest_Normalize(t *testing.T) {
	def := &ListEventsRequest{}
	def.Normalize()
	assert.Equal(t, 50, def.Limit)

	capped := &ListEventsRequest{Limit: 10000}
	capped.Normalize()
	assert.Equal(t, 500, capped.Limit)

	kept := &ListEventsRequest{Limit: 25, Offset: 10}
	kept.Normalize()
	assert.Equal(t, 25, kept.Limit)
	assert.Equal(t, 10, kept.Offset)
}

func TestAuditEvent_Validate(t *testing.T) {
	event := NewAuditEvent(EventKindEgressDenied, "req-1", "203.0.113.9", "http://10.0.0.1/", "private_address")
	assert.NoError(t, event.Validate())
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	noID := *event
	noID.ID = ""
	assert.Error(t, noID.Validate())

	badKind := *event
	badKind.Kind = "bogus"
	assert.Error(t, badKind.Validate())

	noTime := *event
	noTime.CreatedAt = time.Time{}
	assert.Error(t, noTime.Validate())
}
