package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kongming/internal/models"
	"kongming/internal/store"
)

// eventRequest is the create/update form. For all-day events Date may be
// sent instead of Start and End.
type eventRequest struct {
	Title       string   `json:"title"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Date        string   `json:"date"`
	AllDay      bool     `json:"all_day"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
	Attendee    string   `json:"attendee"`
	Channel     string   `json:"channel"`
	SubmitDue   string   `json:"submit_due"`
	Managers    []string `json:"managers"`
}

type eventDTO struct {
	ID          int      `json:"id,omitempty"`
	RawID       string   `json:"raw_id"`
	Title       string   `json:"title"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	AllDay      bool     `json:"all_day"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
	Attendee    string   `json:"attendee,omitempty"`
	Channel     string   `json:"channel,omitempty"`
	SubmitDue   string   `json:"submit_due,omitempty"`
	Managers    []string `json:"managers,omitempty"`
}

func toEventDTO(ev models.Event) eventDTO {
	return eventDTO{
		ID:          ev.ID,
		RawID:       ev.RawID,
		Title:       ev.Title,
		Start:       models.FormatTimestamp(ev.Start),
		End:         models.FormatTimestamp(ev.End),
		AllDay:      ev.AllDay,
		Color:       ev.Color,
		Description: ev.Description,
		Attendee:    ev.Attendee,
		Channel:     ev.Channel,
		SubmitDue:   models.FormatDate(ev.SubmitDue),
		Managers:    ev.Managers,
	}
}

// fields converts the form. Unparsable times are reported as validation
// problems so the caller sees them alongside the store's checks.
func (r eventRequest) fields() (models.Fields, error) {
	f := models.Fields{
		Title:       r.Title,
		AllDay:      r.AllDay,
		Color:       strings.TrimSpace(r.Color),
		Description: r.Description,
		Attendee:    strings.TrimSpace(r.Attendee),
		Channel:     strings.TrimSpace(r.Channel),
		Managers:    models.SplitManagers(models.JoinManagers(r.Managers)),
	}
	var problems []string
	if r.AllDay && r.Date != "" {
		day, err := models.ParseTimestampStrict(r.Date)
		if err != nil {
			problems = append(problems, "date: "+err.Error())
		} else {
			f.Start, f.End = models.AllDayRange(day)
		}
	} else {
		var err error
		if r.Start != "" {
			if f.Start, err = models.ParseTimestampStrict(r.Start); err != nil {
				problems = append(problems, "start: "+err.Error())
			}
		}
		if r.End != "" {
			if f.End, err = models.ParseTimestampStrict(r.End); err != nil {
				problems = append(problems, "end: "+err.Error())
			}
		}
	}
	if r.SubmitDue != "" {
		due, err := models.ParseTimestampStrict(r.SubmitDue)
		if err != nil {
			problems = append(problems, "submit_due: "+err.Error())
		}
		f.SubmitDue = due
	}
	if len(problems) > 0 {
		return models.Fields{}, &store.ValidationError{Problems: problems}
	}
	return f, nil
}

func bindFields(c *gin.Context) (models.Fields, bool) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return models.Fields{}, false
	}
	f, err := req.fields()
	if err != nil {
		fail(c, err)
		return models.Fields{}, false
	}
	return f, true
}
