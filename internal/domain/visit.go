package domain

import "time"

// VisitRecord is one browser session's arrival via a marketing campaign.
// When several records share a session id, the most recently created one is
// authoritative for attribution.
type VisitRecord struct {
	ID              string    `json:"id" db:"id"`
	SessionID       string    `json:"session_id" db:"session_id"`
	UTMSource       string    `json:"utm_source,omitempty" db:"utm_source"`
	UTMMedium       string    `json:"utm_medium,omitempty" db:"utm_medium"`
	UTMCampaign     string    `json:"utm_campaign,omitempty" db:"utm_campaign"`
	UTMTerm         string    `json:"utm_term,omitempty" db:"utm_term"`
	UTMContent      string    `json:"utm_content,omitempty" db:"utm_content"`
	PagePath        string    `json:"page_path" db:"page_path"`
	Referrer        string    `json:"referrer,omitempty" db:"referrer"`
	UserAgent       string    `json:"user_agent,omitempty" db:"user_agent"`
	Converted       bool      `json:"converted" db:"converted"`
	ConversionValue *float64  `json:"conversion_value,omitempty" db:"conversion_value"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// CampaignParams holds the UTM query parameters of a landing URL.
type CampaignParams struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
	Term     string `json:"utm_term,omitempty"`
	Content  string `json:"utm_content,omitempty"`
}

// IsCampaign reports whether the parameters identify a campaign arrival.
// Term and content alone are not enough.
func (p CampaignParams) IsCampaign() bool {
	return p.Source != "" || p.Medium != "" || p.Campaign != ""
}
