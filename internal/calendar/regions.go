package calendar

import (
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/us"
)

// regions maps a region code to its public holidays. German states use the
// ISO 3166-2 subdivision codes.
var regions = map[string][]*cal.Holiday{
	"DE":    de.Holidays,
	"DE-BB": state(de.HolidaysBB),
	"DE-BE": state(de.HolidaysBE),
	"DE-BW": state(de.HolidaysBW),
	"DE-BY": state(de.HolidaysBY),
	"DE-HB": state(de.HolidaysHB),
	"DE-HE": state(de.HolidaysHE),
	"DE-HH": state(de.HolidaysHH),
	"DE-MV": state(de.HolidaysMV),
	"DE-NI": state(de.HolidaysNI),
	"DE-NW": state(de.HolidaysNW),
	"DE-RP": state(de.HolidaysRP),
	"DE-SH": state(de.HolidaysSH),
	"DE-SL": state(de.HolidaysSL),
	"DE-SN": state(de.HolidaysSN),
	"DE-ST": state(de.HolidaysST),
	"DE-TH": state(de.HolidaysTH),
	"ES":    es.Holidays,
	"GB":    gb.Holidays,
	"NL":    nl.Holidays,
	"US":    us.Holidays,
}

// state combines the national German holidays with those of one state.
func state(holidays []*cal.Holiday) []*cal.Holiday {
	out := make([]*cal.Holiday, 0, len(de.Holidays)+len(holidays))
	out = append(out, de.Holidays...)
	return append(out, holidays...)
}
