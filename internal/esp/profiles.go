package esp

type CheckFrequency string

const (
	CheckHourly CheckFrequency = "hourly"
	CheckDaily  CheckFrequency = "daily"
	CheckWeekly CheckFrequency = "weekly"
)

type ChangeFrequency string

const (
	ChangeRare    ChangeFrequency = "rare"
	ChangeMonthly ChangeFrequency = "monthly"
	ChangeWeekly  ChangeFrequency = "weekly"
	ChangeDaily   ChangeFrequency = "daily"
)

// Profile describes how an ESP's SPF include behaves over time and whether
// flattened copies of it can be refreshed without a human in the loop.
type Profile struct {
	ESPName            string          `json:"espName"`
	IncludeDomain      string          `json:"includeDomain"`
	IsStable           bool            `json:"isStable"`
	RequiresMonitoring bool            `json:"requiresMonitoring"`
	CheckFrequency     CheckFrequency  `json:"checkFrequency"`
	ChangeFrequency    ChangeFrequency `json:"changeFrequency"`
	AutoUpdateSafe     bool            `json:"autoUpdateSafe"`
	KnownIPRanges      []string        `json:"knownIPRanges,omitempty"`

	// Known is false for the conservative default returned when no
	// classification exists.
	Known bool `json:"known"`
}

// knownProviders is the curated table of well-known ESP include domains.
// Matching is by exact domain or suffix, so spf1.example.com entries also
// cover their numbered siblings. Stability metadata is maintained by hand.
var knownProviders = map[string]Profile{
	"_spf.google.com": {
		ESPName:         "Google Workspace",
		IsStable:        true,
		CheckFrequency:  CheckWeekly,
		ChangeFrequency: ChangeRare,
		AutoUpdateSafe:  true,
		KnownIPRanges:   []string{"_netblocks.google.com", "_netblocks2.google.com", "_netblocks3.google.com"},
	},
	"spf.protection.outlook.com": {
		ESPName:         "Microsoft 365",
		IsStable:        true,
		CheckFrequency:  CheckWeekly,
		ChangeFrequency: ChangeMonthly,
		AutoUpdateSafe:  true,
	},
	"sendgrid.net": {
		ESPName:         "SendGrid",
		IsStable:        true,
		CheckFrequency:  CheckDaily,
		ChangeFrequency: ChangeMonthly,
		AutoUpdateSafe:  true,
	},
	"mailgun.org": {
		ESPName:            "Mailgun",
		IsStable:           false,
		RequiresMonitoring: true,
		CheckFrequency:     CheckDaily,
		ChangeFrequency:    ChangeWeekly,
		AutoUpdateSafe:     false,
	},
	"_spf.salesforce.com": {
		ESPName:         "Salesforce",
		IsStable:        true,
		CheckFrequency:  CheckWeekly,
		ChangeFrequency: ChangeMonthly,
		AutoUpdateSafe:  true,
	},
	"spf.mandrillapp.com": {
		ESPName:         "Mandrill",
		IsStable:        true,
		CheckFrequency:  CheckWeekly,
		ChangeFrequency: ChangeRare,
		AutoUpdateSafe:  true,
	},
	"amazonses.com": {
		ESPName:         "Amazon SES",
		IsStable:        true,
		CheckFrequency:  CheckDaily,
		ChangeFrequency: ChangeMonthly,
		AutoUpdateSafe:  true,
	},
	"servers.mcsv.net": {
		ESPName:            "Mailchimp",
		IsStable:           false,
		RequiresMonitoring: true,
		CheckFrequency:     CheckDaily,
		ChangeFrequency:    ChangeWeekly,
		AutoUpdateSafe:     false,
	},
	"mail.zendesk.com": {
		ESPName:         "Zendesk",
		IsStable:        true,
		CheckFrequency:  CheckWeekly,
		ChangeFrequency: ChangeMonthly,
		AutoUpdateSafe:  true,
	},
	"zcsend.net": {
		ESPName:            "Zoho Campaigns",
		IsStable:           false,
		RequiresMonitoring: true,
		CheckFrequency:     CheckDaily,
		ChangeFrequency:    ChangeWeekly,
		AutoUpdateSafe:     false,
	},
	"spf.messagelabs.com": {
		ESPName:         "Symantec MessageLabs",
		IsStable:        true,
		CheckFrequency:  CheckWeekly,
		ChangeFrequency: ChangeMonthly,
		AutoUpdateSafe:  true,
	},
	"_spf.createsend.com": {
		ESPName:         "Campaign Monitor",
		IsStable:        true,
		CheckFrequency:  CheckWeekly,
		ChangeFrequency: ChangeMonthly,
		AutoUpdateSafe:  true,
	},
}

// KnownProviders returns a copy of the curated table keyed by include
// domain, for seeding the persistence store.
func KnownProviders() map[string]Profile {
	out := make(map[string]Profile, len(knownProviders))
	for suffix, profile := range knownProviders {
		profile.IncludeDomain = suffix
		profile.Known = true
		out[suffix] = profile
	}
	return out
}

// UnknownProfile is the conservative default for unclassified includes:
// assumed unstable, monitored aggressively, never auto-updated.
func UnknownProfile(includeDomain string) Profile {
	return Profile{
		ESPName:            "Unknown ESP",
		IncludeDomain:      includeDomain,
		IsStable:           false,
		RequiresMonitoring: true,
		CheckFrequency:     CheckHourly,
		ChangeFrequency:    ChangeDaily,
		AutoUpdateSafe:     false,
		Known:              false,
	}
}
