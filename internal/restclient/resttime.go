package restclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/tinoosan/xfer/internal/transfer"
)

// DefaultDateLayout is the REST helper's default response date format,
// spec.md §6: "yyyy-MM-dd HH:mm:ss" locale "ko". The pattern has no
// month/day names to localize, so the Korean locale only matters for
// numeral formatting, which this layout already produces.
const DefaultDateLayout = "2006-01-02 15:04:05"

// Time decodes a REST response's date fields using DefaultDateLayout.
type Time time.Time

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := time.Parse(DefaultDateLayout, s)
	if err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrDecoding, err)
	}
	*t = Time(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(DefaultDateLayout) + `"`), nil
}

// Std returns the underlying time.Time.
func (t Time) Std() time.Time { return time.Time(t) }
