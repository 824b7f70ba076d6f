package booking

import (
	"fmt"
	"strings"
)

// ClassName identifies one of the class types the box offers.
type ClassName int

const (
	OpenBox ClassName = iota
	Crossfit
	Calisthenics
	Weightlifting
)

// classNames maps the config spelling to the enum value.
var classNames = map[string]ClassName{
	"Open Box":      OpenBox,
	"Crossfit":      Crossfit,
	"Calisthenics":  Calisthenics,
	"Weightlifting": Weightlifting,
}

// siteLabels holds the activity names as the timetable actually renders
// them. Calisthenics and Weightlifting appear in the site's own language.
var siteLabels = map[ClassName]string{
	OpenBox:       "Open Box",
	Crossfit:      "Crossfit",
	Calisthenics:  "Calisteni",
	Weightlifting: "Halterofília",
}

func (c ClassName) String() string {
	for name, v := range classNames {
		if v == c {
			return name
		}
	}
	return fmt.Sprintf("ClassName(%d)", int(c))
}

// SiteLabel returns the label to match against the rendered timetable.
func (c ClassName) SiteLabel() string { return siteLabels[c] }

// ParseClassName resolves a config class string to its enum value.
func ParseClassName(s string) (ClassName, error) {
	if c, ok := classNames[strings.TrimSpace(s)]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown class %q (must be one of: Open Box, Crossfit, Calisthenics, Weightlifting)", s)
}
