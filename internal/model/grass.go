package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GrassType is the surface a field is laid with. The same codes are used for the
// boot a reviewer recommends, because soccer boots are sold by surface:
// an "AG" boot is made for artificial grass, an "FG" boot for firm natural ground.
//
// CLOSED ENUMS IN GO:
// Go has no enum keyword. The idiom is a named string type plus a fixed set of
// constants, with a Valid() method so that values decoded from JSON or a database
// can be checked before they are trusted.
type GrassType string

const (
	GrassAG GrassType = "AG" // artificial grass
	GrassFG GrassType = "FG" // firm ground (natural grass)
	GrassMG GrassType = "MG" // multi-ground (dirt, hard courts)
	GrassTF GrassType = "TF" // turf (futsal, indoor)
)

// GrassTypes lists every GrassType in display order.
var GrassTypes = []GrassType{GrassAG, GrassFG, GrassMG, GrassTF}

var grassTypeDescriptions = map[GrassType]string{
	GrassAG: "artificial grass",
	GrassFG: "firm ground",
	GrassMG: "multi-ground",
	GrassTF: "turf",
}

// Valid reports whether g is one of the four known codes.
func (g GrassType) Valid() bool {
	_, ok := grassTypeDescriptions[g]
	return ok
}

// Description returns the human-readable name of the surface.
func (g GrassType) Description() string {
	return grassTypeDescriptions[g]
}

// ParseGrassType accepts a code in any letter case ("ag", "AG").
func ParseGrassType(s string) (GrassType, error) {
	g := GrassType(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("model: unknown grass type %q", s)
	}
	return g, nil
}

// GrassDescriptor is the {code, name} pair fields expose for their grass and shoe type.
type GrassDescriptor struct {
	Code GrassType `json:"code"`
	Name string    `json:"name"`
}

// Descriptor returns the {code, name} form of g.
func (g GrassType) Descriptor() GrassDescriptor {
	return GrassDescriptor{Code: g, Name: g.Description()}
}

// GrassCondition is one of the eight descriptive tags a reviewer can attach to a review.
type GrassCondition string

const (
	ConditionHard           GrassCondition = "HARD"
	ConditionSoft           GrassCondition = "SOFT"
	ConditionLong           GrassCondition = "LONG"
	ConditionShort          GrassCondition = "SHORT"
	ConditionBumpy          GrassCondition = "BUMPY"
	ConditionWellMaintained GrassCondition = "WELL_MAINTAINED"
	ConditionGoodDrainage   GrassCondition = "GOOD_DRAINAGE"
	ConditionSlippery       GrassCondition = "SLIPPERY"
)

// GrassConditions lists every GrassCondition in display order.
var GrassConditions = []GrassCondition{
	ConditionHard,
	ConditionSoft,
	ConditionLong,
	ConditionShort,
	ConditionBumpy,
	ConditionWellMaintained,
	ConditionGoodDrainage,
	ConditionSlippery,
}

// conditionLabels maps the Korean labels used by the first version of the
// platform onto the codes, so older payloads still decode.
var conditionLabels = map[string]GrassCondition{
	"딱딱함":   ConditionHard,
	"부드러움":  ConditionSoft,
	"잔디 김":  ConditionLong,
	"잔디 짧음": ConditionShort,
	"울퉁불퉁함": ConditionBumpy,
	"관리 양호": ConditionWellMaintained,
	"배수 양호": ConditionGoodDrainage,
	"미끄러움":  ConditionSlippery,
}

// Valid reports whether c is one of the eight known tags.
func (c GrassCondition) Valid() bool {
	for _, known := range GrassConditions {
		if c == known {
			return true
		}
	}
	return false
}

// ParseGrassCondition accepts a code in any letter case or one of the legacy labels.
func ParseGrassCondition(s string) (GrassCondition, error) {
	s = strings.TrimSpace(s)
	if c, ok := conditionLabels[s]; ok {
		return c, nil
	}
	c := GrassCondition(strings.ToUpper(s))
	if !c.Valid() {
		return "", fmt.Errorf("model: unknown grass condition %q", s)
	}
	return c, nil
}

// UnmarshalJSON lets legacy labels through the JSON decoder.
// Unknown values are kept as-is so that validation can report them by name.
func (c *GrassCondition) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if parsed, err := ParseGrassCondition(s); err == nil {
		*c = parsed
		return nil
	}
	*c = GrassCondition(s)
	return nil
}
