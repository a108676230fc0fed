package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// legacyTimeLayout is the local-time layout used by task files written by
// earlier releases.
const legacyTimeLayout = "2006-01-02 15:04:05"

// Timestamp is a time.Time that encodes as RFC 3339 and also decodes the
// legacy layout.
type Timestamp struct {
	time.Time
}

// NewTimestamp strips the monotonic clock reading so that values survive a
// persistence round trip unchanged.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Round(0)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*t = Timestamp{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		*t = Timestamp{Time: parsed}
		return nil
	}
	parsed, err := time.ParseInLocation(legacyTimeLayout, raw, time.Local)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", raw, err)
	}
	*t = Timestamp{Time: parsed}
	return nil
}
