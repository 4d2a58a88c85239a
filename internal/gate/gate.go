// Package gate decides whether a viewer may act on location-bound content.
// Decisions are advisory for neighborhood mismatches and hard for city
// mismatches, and the gate fails open: when either side's location is
// unknown it never blocks.
package gate

import (
	"fmt"

	"github.com/quintalapp/geoscope/internal/geo"
	"github.com/quintalapp/geoscope/internal/location"
)

// Outcome is the gate's verdict for one access check.
type Outcome string

const (
	// OutcomeAllow lets the action proceed silently.
	OutcomeAllow Outcome = "allow"

	// OutcomeWarn lets the action proceed after an advisory message. The
	// viewer is in the right city but a different neighborhood.
	OutcomeWarn Outcome = "warn"

	// OutcomeBlock refuses the action. The viewer is in a different city.
	OutcomeBlock Outcome = "block"
)

// Content is the location binding of the thing being accessed.
// Empty or sentinel labels mean the binding is unknown at that level.
type Content struct {
	City         string
	Neighborhood string

	// DisplayName names the content in advisory messages, e.g. the
	// listing title or community name.
	DisplayName string
}

// Decision is the outcome plus the user-facing message, empty for a
// silent allow.
type Decision struct {
	Outcome Outcome
	Message string
}

// Decide checks a viewer's resolved location against content bindings.
// bypass skips all checks, for owners and moderators. A nil viewer
// location allows: gating only applies once the viewer is resolvable.
func Decide(viewer *location.ResolvedLocation, content Content, bypass bool) Decision {
	if bypass {
		return Decision{Outcome: OutcomeAllow}
	}

	viewerCity := knownLabel(viewerField(viewer, func(l *location.ResolvedLocation) string { return l.City }), location.UnknownCity)
	contentCity := knownLabel(content.City, location.UnknownCity)

	// Fail open when either city is unknown.
	if viewerCity == "" || contentCity == "" {
		return Decision{Outcome: OutcomeAllow}
	}

	if !geo.SameLabel(viewerCity, contentCity) {
		return Decision{
			Outcome: OutcomeBlock,
			Message: fmt.Sprintf("%s is only available in %s.", displayName(content), contentCity),
		}
	}

	viewerHood := knownLabel(viewerField(viewer, func(l *location.ResolvedLocation) string { return l.Neighborhood }), location.UnknownNeighborhood)
	contentHood := knownLabel(content.Neighborhood, location.UnknownNeighborhood)

	if viewerHood == "" || contentHood == "" {
		return Decision{Outcome: OutcomeAllow}
	}

	if !geo.SameLabel(viewerHood, contentHood) {
		return Decision{
			Outcome: OutcomeWarn,
			Message: fmt.Sprintf("%s is based in %s, outside your neighborhood.", displayName(content), contentHood),
		}
	}

	return Decision{Outcome: OutcomeAllow}
}

func viewerField(viewer *location.ResolvedLocation, field func(*location.ResolvedLocation) string) string {
	if viewer == nil {
		return ""
	}
	return field(viewer)
}

// knownLabel collapses the unknown sentinel to empty so all downstream
// checks have a single notion of "unknown".
func knownLabel(label, sentinel string) string {
	if label == sentinel {
		return ""
	}
	return label
}

func displayName(content Content) string {
	if content.DisplayName != "" {
		return content.DisplayName
	}
	return "This content"
}
