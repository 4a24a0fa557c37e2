package simulate

import (
	"math"
	"regexp"
	"strings"

	"automationsim/internal/ha"
)

const earthRadiusMeters = 6371000.0

var slugRe = regexp.MustCompile(`[^a-z0-9_]+`)

// simpleSlug lowercases and collapses non-alphanumerics, matching how zone
// entity ids are derived from friendly names
func simpleSlug(value string) string {
	if value == "" {
		return ""
	}
	s := slugRe.ReplaceAllString(strings.ToLower(value), "_")
	return strings.Trim(s, "_")
}

// haversineMeters returns the great-circle distance between two coordinates
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// resolveZoneEntity resolves a zone reference to a zone entity: by direct
// entity id, by the slugified reference prefixed with "zone.", or by
// case-insensitive friendly-name match across all zone entities.
func resolveZoneEntity(zoneRef string, states map[string]ha.State) (string, *ha.State) {
	zoneID := strings.TrimSpace(zoneRef)
	if zoneID == "" {
		return "", nil
	}
	if st, ok := states[zoneID]; ok {
		return zoneID, &st
	}
	if !strings.HasPrefix(zoneID, "zone.") {
		candidate := "zone." + simpleSlug(zoneID)
		if st, ok := states[candidate]; ok {
			return candidate, &st
		}
	}
	target := strings.ToLower(zoneID)
	for entityID, st := range states {
		if !strings.HasPrefix(entityID, "zone.") {
			continue
		}
		name := strings.ToLower(attrString(st.Attributes, "friendly_name"))
		if name != "" && name == target {
			st := st
			return entityID, &st
		}
	}
	return "", nil
}

// entityInZone decides whether an entity is inside a zone. Geometry wins
// when both sides expose coordinates; otherwise the entity's state string is
// matched against the zone's identity. Unknown only when the entity's own
// state is missing or unavailable and no geometry applies.
func entityInZone(entityID, zoneRef string, ctx *Context) Verdict {
	value, ok, attrs := ctx.ResolveState(entityID)

	zoneID, zoneState := resolveZoneEntity(zoneRef, ctx.States)
	var zoneAttrs map[string]interface{}
	if zoneState != nil {
		zoneAttrs = zoneState.Attributes
	}

	lat, latOK := asFloat(attrs["latitude"])
	lon, lonOK := asFloat(attrs["longitude"])
	zlat, zlatOK := attrFloat(zoneAttrs, "latitude")
	zlon, zlonOK := attrFloat(zoneAttrs, "longitude")
	radius, radiusOK := attrFloat(zoneAttrs, "radius")
	if latOK && lonOK && zlatOK && zlonOK && radiusOK {
		return verdictOf(haversineMeters(lat, lon, zlat, zlon) <= radius)
	}

	if !ok {
		return VerdictUnknown
	}
	sval := strings.ToLower(strings.TrimSpace(value))
	if sval == "" || sval == "unknown" || sval == "unavailable" {
		return VerdictUnknown
	}

	zoneName := strings.ToLower(attrString(zoneAttrs, "friendly_name"))
	ref := strings.ToLower(strings.TrimSpace(zoneRef))

	if zoneID != "" {
		if sval == strings.ToLower(zoneID) {
			return VerdictTrue
		}
		parts := strings.SplitN(strings.ToLower(zoneID), ".", 2)
		if sval == parts[len(parts)-1] {
			return VerdictTrue
		}
	}
	if zoneName != "" && sval == zoneName {
		return VerdictTrue
	}
	if ref != "" {
		if sval == ref {
			return VerdictTrue
		}
		if strings.HasPrefix(ref, "zone.") && sval == strings.TrimPrefix(ref, "zone.") {
			return VerdictTrue
		}
	}

	if zoneID != "" || zoneName != "" {
		return VerdictFalse
	}
	return VerdictUnknown
}

func attrFloat(attrs map[string]interface{}, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	return asFloat(attrs[key])
}
