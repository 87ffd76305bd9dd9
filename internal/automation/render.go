package automation

import (
	"strings"
	"time"

	"github.com/nerrad567/stayflow-core/internal/lodging"
)

// displayDateLayout is how stay dates appear in guest messages.
const displayDateLayout = "02/01/2006"

// Links holds the base URLs guest links are built from. An empty base
// leaves the matching variable undefined.
type Links struct {
	PortalBaseURL string
	SurveyBaseURL string
}

// Variables resolves the placeholder values for one stay. cabin may be nil.
func Variables(guest *lodging.Guest, cabin *lodging.Cabin, stay *lodging.Stay, links Links) map[string]string {
	vars := map[string]string{
		"guest_name":      guest.FirstName,
		"guest_full_name": guest.FullName(),
		"access_code":     stay.AccessCode,
		"check_in":        displayDate(stay.CheckIn),
		"check_out":       displayDate(stay.CheckOut),
	}
	if cabin != nil {
		vars["cabin_name"] = cabin.Name
		vars["wifi_ssid"] = cabin.WifiSSID
		vars["wifi_password"] = cabin.WifiPassword
	}
	if base := strings.TrimRight(links.PortalBaseURL, "/"); base != "" && stay.AccessCode != "" {
		vars["portal_link"] = base + "/p/" + stay.AccessCode
	}
	if base := strings.TrimRight(links.SurveyBaseURL, "/"); base != "" {
		vars["survey_link"] = base + "/s/" + stay.ID
	}
	return vars
}

// Render replaces each {{token}} in body with its value. Tokens without a
// value are left exactly as written.
func Render(body string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}

func displayDate(date string) string {
	d, err := time.Parse(lodging.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format(displayDateLayout)
}
