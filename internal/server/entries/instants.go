package entries

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/server/dateparse"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
)

// createInstants applies the create-path defaults:
//   - both leave fields blank: now
//   - literal "today" with no time: now
//   - date only: midnight
//   - time only: today
//   - both return fields blank: open-ended
//   - return time only: on the leave date
//   - return date only: midnight
func (s *Service) createInstants(in CreateInput, loc *time.Location) (time.Time, *time.Time, error) {
	now := s.clock.Now()

	leaveDate := strings.TrimSpace(in.LeaveDate)
	leaveTime := strings.TrimSpace(in.LeaveTime)

	leave := now
	if leaveDate != "" || leaveTime != "" {
		d, hasDate, err := s.parseDate("leave date", leaveDate, loc)
		if err != nil {
			return time.Time{}, nil, err
		}
		t, hasTime, err := s.parseTime("leave time", leaveTime)
		if err != nil {
			return time.Time{}, nil, err
		}

		switch {
		case hasDate && !hasTime && strings.EqualFold(leaveDate, "today"):
			leave = now
		case hasDate && !hasTime:
			leave = d.At(dateparse.Midnight, loc)
		case !hasDate && hasTime:
			leave = s.parser.Today(loc).At(t, loc)
		default:
			leave = d.At(t, loc)
		}
	}

	returnDate := strings.TrimSpace(in.ReturnDate)
	returnTime := strings.TrimSpace(in.ReturnTime)
	if returnDate == "" && returnTime == "" {
		return leave, nil, nil
	}

	d, hasDate, err := s.parseDate("return date", returnDate, loc)
	if err != nil {
		return time.Time{}, nil, err
	}
	t, _, err := s.parseTime("return time", returnTime)
	if err != nil {
		return time.Time{}, nil, err
	}
	if !hasDate {
		d = dateparse.DateOf(leave.In(loc))
	}
	ret := d.At(t, loc)
	return leave, &ret, nil
}

// editInstants applies the edit-path rules. A group whose fields are all
// omitted keeps its prior instant. Inside a touched group an omitted field
// takes the prior component in loc, a blank date means today (leave) or the
// leave date (return), and a blank time means midnight. Both fields blank
// means now for leave and open-ended for return.
func (s *Service) editInstants(e *models.Entry, in EditInput, loc *time.Location) (time.Time, *time.Time, error) {
	now := s.clock.Now()

	leave := e.LeaveAt
	if in.LeaveDate != nil || in.LeaveTime != nil {
		prior := e.LeaveAt.In(loc)
		dateText, dateGiven := field(in.LeaveDate)
		timeText, timeGiven := field(in.LeaveTime)

		if blank(in.LeaveDate, in.LeaveTime) {
			leave = now
		} else {
			d := dateparse.DateOf(prior)
			if dateGiven {
				parsed, ok, err := s.parseDate("leave date", dateText, loc)
				if err != nil {
					return time.Time{}, nil, err
				}
				if ok {
					d = parsed
				} else {
					d = s.parser.Today(loc)
				}
			}

			t := dateparse.ClockOf(prior)
			if timeGiven {
				parsed, ok, err := s.parseTime("leave time", timeText)
				if err != nil {
					return time.Time{}, nil, err
				}
				if ok {
					t = parsed
				} else {
					t = dateparse.Midnight
				}
			}
			leave = d.At(t, loc)
		}
	}

	ret := e.ReturnAt
	if in.ReturnDate != nil || in.ReturnTime != nil {
		if blank(in.ReturnDate, in.ReturnTime) {
			return leave, nil, nil
		}

		dateText, dateGiven := field(in.ReturnDate)
		timeText, timeGiven := field(in.ReturnTime)

		d := dateparse.DateOf(leave.In(loc))
		t := dateparse.Midnight
		if e.ReturnAt != nil {
			prior := e.ReturnAt.In(loc)
			d = dateparse.DateOf(prior)
			t = dateparse.ClockOf(prior)
		}

		if dateGiven {
			parsed, ok, err := s.parseDate("return date", dateText, loc)
			if err != nil {
				return time.Time{}, nil, err
			}
			if ok {
				d = parsed
			} else {
				d = dateparse.DateOf(leave.In(loc))
			}
		}
		if timeGiven {
			parsed, ok, err := s.parseTime("return time", timeText)
			if err != nil {
				return time.Time{}, nil, err
			}
			if ok {
				t = parsed
			} else {
				t = dateparse.Midnight
			}
		}
		v := d.At(t, loc)
		ret = &v
	}

	return leave, ret, nil
}

// parseDate parses text; ok is false for blank input.
func (s *Service) parseDate(name, text string, loc *time.Location) (dateparse.Date, bool, error) {
	if text == "" {
		return dateparse.Date{}, false, nil
	}
	d, ok := s.parser.ParseDate(text, loc)
	if !ok {
		return dateparse.Date{}, false, &common.ParseError{Field: name, Input: text}
	}
	return d, true, nil
}

// parseTime parses text; blank input yields midnight with ok false.
func (s *Service) parseTime(name, text string) (dateparse.TimeOfDay, bool, error) {
	if text == "" {
		return dateparse.Midnight, false, nil
	}
	t, ok := s.parser.ParseTime(text)
	if !ok {
		return dateparse.TimeOfDay{}, false, &common.ParseError{Field: name, Input: text}
	}
	return t, true, nil
}

func field(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return strings.TrimSpace(*p), true
}

// blank is true when both fields were supplied and empty.
func blank(a, b *string) bool {
	return a != nil && b != nil && strings.TrimSpace(*a) == "" && strings.TrimSpace(*b) == ""
}
