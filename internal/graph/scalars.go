package graph

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/graph-gophers/graphql-go"
)

// DateLayout is the wire format of Date values and Bucket.date_created
const DateLayout = "2006-01-02T15:04:05.000Z"

// Date is the Date scalar: an ISO-8601 UTC timestamp with millisecond precision
type Date struct {
	time.Time
}

// ImplementsGraphQLType maps this type to the Date scalar
func (Date) ImplementsGraphQLType(name string) bool {
	return name == "Date"
}

// UnmarshalGraphQL accepts an RFC 3339 string or milliseconds since the epoch
func (d *Date) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("invalid Date %q: %w", v, err)
		}
		d.Time = t.UTC()
	case int32:
		d.Time = time.UnixMilli(int64(v)).UTC()
	case int64:
		d.Time = time.UnixMilli(v).UTC()
	case float64:
		d.Time = time.UnixMilli(int64(v)).UTC()
	default:
		return fmt.Errorf("wrong type for Date: %T", v)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(formatTime(d.Time))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func optDate(t time.Time) *Date {
	if t.IsZero() {
		return nil
	}
	return &Date{Time: t}
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optID(s string) *graphql.ID {
	if s == "" {
		return nil
	}
	id := graphql.ID(s)
	return &id
}

func optStrings(values []string) *[]*string {
	if len(values) == 0 {
		return nil
	}
	out := make([]*string, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return &out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefStrings(values *[]*string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(*values))
	for _, v := range *values {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func derefIDs(values *[]*graphql.ID) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(*values))
	for _, v := range *values {
		if v != nil {
			out = append(out, string(*v))
		}
	}
	return out
}
