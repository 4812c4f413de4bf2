package confirmation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bundlebooth/booking-services/internal/apperr"
)

var slotLabelPattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*([AaPp][Mm])\s*-\s*(\d{1,2}):(\d{2})\s*([AaPp][Mm])\s*$`)

// WallClock is a time of day in minutes after midnight.
type WallClock int

func (c WallClock) Hour() int   { return int(c) / 60 }
func (c WallClock) Minute() int { return int(c) % 60 }

// ParseSlotLabel reads a label like "6:00 PM - 9:00 PM" into start and end
// wall-clock times. Anything else is a validation error.
func ParseSlotLabel(label string) (start, end WallClock, err error) {
	m := slotLabelPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, apperr.Validation("timeSlotDisplay", "%q is not of the form \"H:MM AM - H:MM PM\"", label)
	}
	start, err = clock(m[1], m[2], m[3])
	if err != nil {
		return 0, 0, err
	}
	end, err = clock(m[4], m[5], m[6])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func clock(hourText, minuteText, meridiem string) (WallClock, error) {
	hour, _ := strconv.Atoi(hourText)
	minute, _ := strconv.Atoi(minuteText)
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, apperr.Validation("timeSlotDisplay", "%s:%s %s is not a valid time", hourText, minuteText, meridiem)
	}
	hour %= 12
	if strings.EqualFold(meridiem, "PM") {
		hour += 12
	}
	return WallClock(hour*60 + minute), nil
}
