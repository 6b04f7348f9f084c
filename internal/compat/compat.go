// Package compat holds the gender-eligibility predicate used by discovery.
// The whole policy lives behind AllowedGenders so a product decision can be
// changed in one place.
package compat

import "strings"

type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNonBinary Gender = "non-binary"
)

type Orientation string

const (
	OrientationStraight  Orientation = "straight"
	OrientationGay       Orientation = "gay"
	OrientationLesbian   Orientation = "lesbian"
	OrientationBisexual  Orientation = "bisexual"
	OrientationPansexual Orientation = "pansexual"
	OrientationOther     Orientation = "other"
)

// NormalizeGender lower-cases and maps legacy values to canonical form.
// Unknown input is returned as-is (lower-cased) so callers can detect it.
func NormalizeGender(s string) Gender {
	g := Gender(strings.ToLower(strings.TrimSpace(s)))
	if g == "other" {
		return GenderNonBinary
	}
	return g
}

// NormalizeOrientation lower-cases and maps legacy values to canonical form.
func NormalizeOrientation(s string) Orientation {
	o := Orientation(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case "hetero":
		return OrientationStraight
	case "homosexual":
		return OrientationGay
	case "bi":
		return OrientationBisexual
	case "pan":
		return OrientationPansexual
	}
	return o
}

func validGender(g Gender) bool {
	switch g {
	case GenderMale, GenderFemale, GenderNonBinary:
		return true
	}
	return false
}

func validOrientation(o Orientation) bool {
	switch o {
	case OrientationStraight, OrientationGay, OrientationLesbian,
		OrientationBisexual, OrientationPansexual, OrientationOther:
		return true
	}
	return false
}

// AllowedGenders returns the set of candidate genders eligible for a viewer.
//
// The second return value reports whether the predicate is resolvable at all:
// when either input is missing or unrecognized it returns (nil, false) and
// callers apply no gender restriction. When resolvable, an empty set means
// genuinely zero eligible genders.
//
// The lesbian arm is intentionally narrower than gay (female-only regardless
// of viewer gender). That asymmetry mirrors the live product behavior; see
// DESIGN.md before changing it.
func AllowedGenders(gender, orientation string) ([]Gender, bool) {
	g := NormalizeGender(gender)
	o := NormalizeOrientation(orientation)

	if !validGender(g) || !validOrientation(o) {
		return nil, false
	}

	switch o {
	case OrientationBisexual, OrientationPansexual:
		return []Gender{GenderMale, GenderFemale, GenderNonBinary}, true

	case OrientationStraight:
		switch g {
		case GenderMale:
			return []Gender{GenderFemale}, true
		case GenderFemale:
			return []Gender{GenderMale}, true
		case GenderNonBinary:
			return []Gender{GenderMale, GenderFemale}, true
		}

	case OrientationGay:
		return []Gender{g}, true

	case OrientationLesbian:
		if g == GenderFemale {
			return []Gender{GenderFemale}, true
		}
		return []Gender{}, true
	}

	// "other" and anything unmatched: resolvable, zero eligible genders.
	return []Gender{}, true
}

// Strings converts a gender set to plain strings for query building.
func Strings(genders []Gender) []string {
	out := make([]string, len(genders))
	for i, g := range genders {
		out[i] = string(g)
	}
	return out
}
