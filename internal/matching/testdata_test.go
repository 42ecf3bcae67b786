package matching

import "time"

// newPersona builds a minimal active persona for tests: id, domains, and a
// same-city/overlapping-availability baseline so two freshly-built personas
// are candidate-pool-eligible for each other by default. Tests override
// whatever fields matter for the behavior under test.
func newPersona(id int, domains ...Domain) Persona {
	return Persona{
		ID:      id,
		Status:  StatusActive,
		Domains: domains,
		General: GeneralProfile{
			Name:           "persona",
			Age:            30,
			GenderIdentity: "woman",
			Location:       Location{City: "Springfield", Country: "US", TimeZone: "UTC"},
			Bio:            "loves hiking and board games",
		},
		Profile: Profile{
			Availability: Availability{
				Weekly: []AvailabilityWindow{
					{Weekday: time.Monday, StartMin: 9 * 60, EndMin: 17 * 60},
				},
			},
			Interests:       []string{"hiking", "board games"},
			ConnectionGoals: []string{"new friends"},
		},
		Reliability: Reliability{Score: 0.9},
	}
}

// mondayNoon is a fixed reference time (a Monday) used across tests so
// availability-overlap and cooldown math is deterministic.
var mondayNoon = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

func baseOptions(domains ...Domain) EngineOptions {
	o := EngineOptions{
		Now:                    mondayNoon,
		MatchDomains:           domains,
		MinAvailabilityMinutes: intPtr(60),
	}
	return o.applyDefaults()
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }
