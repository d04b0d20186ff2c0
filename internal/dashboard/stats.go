// Package dashboard recomputes pipeline statistics from the visible
// lead set on every call. Nothing here is cached or persisted.
package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/salesops/leadhub/internal/domain/lead"
)

// UnassignedKey buckets leads without a district in the per-district
// counts.
const UnassignedKey = "unassigned"

const activityFeedSize = 10

type Activity struct {
	LeadID    string      `json:"lead_id"`
	LeadName  string      `json:"lead_name"`
	Status    lead.Status `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Stats struct {
	TotalLeads       int            `json:"total_leads"`
	NewLeads         int            `json:"new_leads"`
	ContactedLeads   int            `json:"contacted_leads"`
	QualifiedLeads   int            `json:"qualified_leads"`
	WonLeads         int            `json:"won_leads"`
	LostLeads        int            `json:"lost_leads"`
	ConversionRate   float64        `json:"conversion_rate"`
	TotalRevenue     float64        `json:"total_revenue"`
	LeadsByStatus    map[string]int `json:"leads_by_status"`
	LeadsByDistrict  map[string]int `json:"leads_by_district"`
	LeadsBySource    map[string]int `json:"leads_by_source"`
	RecentActivities []Activity     `json:"recent_activities"`
}

// Compute aggregates the given leads in a single pass. The caller
// passes the set already scoped by the policy engine; Compute itself
// is role-agnostic.
func Compute(leads []lead.Lead) Stats {
	byStatus := make(map[string]int)
	byDistrict := make(map[string]int)
	bySource := make(map[string]int)

	var revenue float64

	for _, l := range leads {
		byStatus[string(l.Status)]++

		districtKey := UnassignedKey
		if l.DistrictID != nil {
			districtKey = *l.DistrictID
		}
		byDistrict[districtKey]++

		bySource[string(l.Source)]++

		// revenue counts won deals only; a won lead without a budget
		// contributes nothing
		if l.Status == lead.StatusWon && l.Budget != nil {
			revenue += *l.Budget
		}
	}

	total := len(leads)
	won := byStatus[string(lead.StatusWon)]

	rate := 0.0
	if total > 0 {
		rate = round2(float64(won) / float64(total) * 100)
	}

	return Stats{
		TotalLeads:       total,
		NewLeads:         byStatus[string(lead.StatusNew)],
		ContactedLeads:   byStatus[string(lead.StatusContacted)],
		QualifiedLeads:   byStatus[string(lead.StatusQualified)],
		WonLeads:         won,
		LostLeads:        byStatus[string(lead.StatusLost)],
		ConversionRate:   rate,
		TotalRevenue:     revenue,
		LeadsByStatus:    byStatus,
		LeadsByDistrict:  byDistrict,
		LeadsBySource:    bySource,
		RecentActivities: recentActivities(leads),
	}
}

// recentActivities projects the most recently updated leads, newest
// first. The sort is stable so ties keep their original order.
func recentActivities(leads []lead.Lead) []Activity {
	sorted := make([]lead.Lead, len(leads))
	copy(sorted, leads)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	if len(sorted) > activityFeedSize {
		sorted = sorted[:activityFeedSize]
	}

	feed := make([]Activity, 0, len(sorted))

	for _, l := range sorted {
		feed = append(feed, Activity{
			LeadID:    l.ID,
			LeadName:  l.Name,
			Status:    l.Status,
			UpdatedAt: l.UpdatedAt,
		})
	}

	return feed
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
