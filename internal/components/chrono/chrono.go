package chrono

import "time"

// DateLayout is the format every dataset takes dates in.
const DateLayout = "2006-01-02"

var shanghai *time.Location

func init() {
	var err error
	shanghai, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		shanghai = time.FixedZone("CST", 8*60*60)
	}
}

// Shanghai returns the timezone the exchanges publish in.
func Shanghai() *time.Location {
	return shanghai
}

// Calendar is the interface dataset wrappers use to default date
// parameters.
type Calendar interface {
	Today() time.Time
	IsTradeDay(date time.Time) bool
	LastTradeDate() time.Time
	// Hour is the current hour in exchange time, some sources publish the
	// day's data in the evening.
	Hour() int
}

// StandardCalendar treats weekends and a fixed set of holidays as closed.
type StandardCalendar struct {
	holidays map[string]struct{}
	now      func() time.Time
}

// NewStandardCalendar creates a calendar with the given holidays (YYYY-MM-DD).
func NewStandardCalendar(holidays ...string) StandardCalendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h] = struct{}{}
	}
	return StandardCalendar{
		holidays: set,
		now:      time.Now,
	}
}

// WithNow returns a copy of the calendar that reads the clock from now.
func (c StandardCalendar) WithNow(now func() time.Time) StandardCalendar {
	c.now = now
	return c
}

func (c StandardCalendar) Today() time.Time {
	now := c.now().In(shanghai)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, shanghai)
}

func (c StandardCalendar) IsTradeDay(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[date.Format(DateLayout)]
	return !holiday
}

// LastTradeDate returns the closest trade day strictly before today.
func (c StandardCalendar) LastTradeDate() time.Time {
	date := c.Today().AddDate(0, 0, -1)
	// a year without a single trade day means the holiday set is broken
	for i := 0; i < 366 && !c.IsTradeDay(date); i++ {
		date = date.AddDate(0, 0, -1)
	}
	return date
}

// Hour returns the current hour in exchange time.
func (c StandardCalendar) Hour() int {
	return c.now().In(shanghai).Hour()
}
