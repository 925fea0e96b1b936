package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/safenetshield/reportsafe-api/models"
)

// Support serves the static support directory
type Support struct{}

// supportDirectory is curated by the safety team and ships with the binary
var supportDirectory = []models.SupportResource{
	{
		Name:        "National Domestic Violence Hotline",
		Category:    "crisis",
		Number:      "1-800-799-7233",
		Website:     "https://www.thehotline.org",
		Description: "Confidential support for anyone experiencing abuse",
		Available:   "24/7",
	},
	{
		Name:        "Crisis Text Line",
		Category:    "crisis",
		Number:      "Text HOME to 741741",
		Website:     "https://www.crisistextline.org",
		Description: "Free text-based crisis counseling",
		Available:   "24/7",
	},
	{
		Name:        "Cyber Civil Rights Initiative",
		Category:    "image_abuse",
		Number:      "1-844-878-2274",
		Website:     "https://cybercivilrights.org",
		Description: "Help removing non-consensual intimate images",
		Available:   "24/7",
	},
	{
		Name:        "FBI Internet Crime Complaint Center",
		Category:    "law_enforcement",
		Website:     "https://www.ic3.gov",
		Description: "Federal reporting for internet-facilitated crime",
		Available:   "Online",
	},
	{
		Name:        "NCMEC CyberTipline",
		Category:    "child_safety",
		Number:      "1-800-843-5678",
		Website:     "https://report.cybertip.org",
		Description: "Reporting line for online child exploitation",
		Available:   "24/7",
	},
	{
		Name:        "Stalking Prevention, Awareness, and Resource Center",
		Category:    "stalking",
		Website:     "https://www.stalkingawareness.org",
		Description: "Guidance and safety planning for stalking victims",
		Available:   "Online",
	},
}

// ResourcesHandler returns the support directory, optionally filtered by
// category and a free-text search over name and description.
func (s Support) ResourcesHandler(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))

	resources := make([]models.SupportResource, 0, len(supportDirectory))
	for _, res := range supportDirectory {
		if category != "" && res.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(res.Name), search) &&
			!strings.Contains(strings.ToLower(res.Description), search) {
			continue
		}
		resources = append(resources, res)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resources)
}
