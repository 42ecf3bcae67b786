package matching

import "strings"

// jaccard returns the Jaccard similarity of two string sets (case-folded),
// used throughout the small/large pass scoring (spec §4.4, §4.5).
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := toSet(a)
	setB := toSet(b)
	inter := 0
	for k := range setA {
		if setB[k] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func toSet(xs []string) map[string]bool {
	set := make(map[string]bool, len(xs))
	for _, x := range xs {
		set[strings.ToLower(strings.TrimSpace(x))] = true
	}
	return set
}

func hasAny(a, b []string) bool {
	setB := toSet(b)
	for _, x := range a {
		if setB[strings.ToLower(strings.TrimSpace(x))] {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// datingEligible applies the dating-domain rules of spec §4.3.1.
func datingEligible(persona, candidate *Persona) bool {
	pd, cd := persona.DomainProfiles.Dating, candidate.DomainProfiles.Dating
	if pd == nil || cd == nil {
		return false
	}

	if !genderOrientationCompatible(persona, pd, candidate, cd) {
		return false
	}

	if !ageWithinPreference(candidate.General.Age, pd) || !ageWithinPreference(persona.General.Age, cd) {
		return false
	}

	for _, kw := range pd.Dealbreakers {
		if containsFold(candidate.General.Bio, kw) || hasAny([]string{kw}, candidate.Profile.Interests) {
			return false
		}
	}
	for _, kw := range cd.Dealbreakers {
		if containsFold(persona.General.Bio, kw) || hasAny([]string{kw}, persona.Profile.Interests) {
			return false
		}
	}

	if len(pd.PreferredBuilds) > 0 && cd.Build != "" && !containsStr(pd.PreferredBuilds, cd.Build) {
		return false
	}

	return true
}

func containsStr(xs []string, v string) bool {
	for _, x := range xs {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

func ageWithinPreference(age int, pref *DatingProfile) bool {
	if pref.MinAge == 0 && pref.MaxAge == 0 {
		return true
	}
	if pref.MinAge != 0 && age < pref.MinAge {
		return false
	}
	if pref.MaxAge != 0 && age > pref.MaxAge {
		return false
	}
	return true
}

// genderOrientationCompatible checks mutual preferred-gender membership and
// that an exclusive orientation ("gay"/"lesbian") requires the same
// identity on both sides (spec §4.3.1).
func genderOrientationCompatible(persona *Persona, pd *DatingProfile, candidate *Persona, cd *DatingProfile) bool {
	if len(pd.PreferredGenders) > 0 && !containsStr(pd.PreferredGenders, candidate.General.GenderIdentity) {
		return false
	}
	if len(cd.PreferredGenders) > 0 && !containsStr(cd.PreferredGenders, persona.General.GenderIdentity) {
		return false
	}
	if exclusiveOrientation(pd.Orientation) && !strings.EqualFold(persona.General.GenderIdentity, candidate.General.GenderIdentity) {
		return false
	}
	if exclusiveOrientation(cd.Orientation) && !strings.EqualFold(candidate.General.GenderIdentity, persona.General.GenderIdentity) {
		return false
	}
	return true
}

func exclusiveOrientation(o string) bool {
	switch strings.ToLower(o) {
	case "gay", "lesbian":
		return true
	default:
		return false
	}
}

// businessEligible applies the business-domain rule of spec §4.3.2.
func businessEligible(persona, candidate *Persona) bool {
	pb, cb := persona.DomainProfiles.Business, candidate.DomainProfiles.Business
	if pb == nil || cb == nil {
		return false
	}
	if len(pb.SeekingRoles) > 0 && !hasAny(pb.SeekingRoles, cb.Roles) {
		return false
	}
	if len(cb.SeekingRoles) > 0 && !hasAny(cb.SeekingRoles, pb.Roles) {
		return false
	}
	return true
}

// friendshipEligible applies the friendship-domain rule of spec §4.3.3.
func friendshipEligible(persona, candidate *Persona, requireSharedInterests bool) bool {
	pf, cf := persona.DomainProfiles.Friendship, candidate.DomainProfiles.Friendship
	if pf == nil || cf == nil {
		return false
	}
	if !requireSharedInterests {
		return true
	}
	return jaccard(pf.Interests, cf.Interests) >= 0.05
}

// domainEligible dispatches to the per-domain predicate. General has no
// domain-specific predicate beyond the basic filters already applied by
// the candidate pool builder (spec §9 open question: "general" is the
// minimum union of basic filters).
func domainEligible(domain Domain, persona, candidate *Persona, requireSharedInterests bool) bool {
	switch domain {
	case DomainDating:
		return datingEligible(persona, candidate)
	case DomainBusiness:
		return businessEligible(persona, candidate)
	case DomainFriendship:
		return friendshipEligible(persona, candidate, requireSharedInterests)
	default:
		return true
	}
}
