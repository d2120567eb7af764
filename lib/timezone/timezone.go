package timezone

import (
	"time"
	_ "time/tzdata"
)

// Location is the timezone of the portal, dates shown to operators and
// written to the ledger reports are rendered in it.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Tashkent")
	if err != nil {
		panic(err)
	}
}

func Now() time.Time {
	return time.Now().In(Location)
}

// Format renders t in the portal's timezone, the zero time is rendered as "-".
func Format(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(Location).Format(time.DateTime)
}
