package simulate

import (
	"strings"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// SunTimes holds today's derived sunrise and sunset instants
type SunTimes struct {
	Sunrise time.Time
	Sunset  time.Time
}

// sunTimesForToday derives today's sunrise and sunset. The primary source is
// the sun.sun tracking entity's next_rising/next_setting attributes: when
// the sun is above the horizon the next rising is tomorrow's, so sunrise is
// shifted back a day; below the horizon the attributes are today's unless
// the next rising already falls on tomorrow's date. When the entity or its
// attributes are unavailable, falls back to computing from the home zone's
// coordinates. Returns nil when neither source resolves.
func sunTimesForToday(ctx *Context) *SunTimes {
	if ctx.Now.IsZero() {
		return nil
	}

	if st, ok := ctx.States["sun.sun"]; ok {
		nextRising, risingOK := parseDateTime(attrString(st.Attributes, "next_rising"))
		nextSetting, settingOK := parseDateTime(attrString(st.Attributes, "next_setting"))
		if risingOK && settingOK {
			if strings.ToLower(st.State) == "above_horizon" {
				return &SunTimes{
					Sunrise: nextRising.AddDate(0, 0, -1),
					Sunset:  nextSetting,
				}
			}
			if sameDate(nextRising, ctx.Now) {
				return &SunTimes{Sunrise: nextRising, Sunset: nextSetting}
			}
			return &SunTimes{
				Sunrise: nextRising.AddDate(0, 0, -1),
				Sunset:  nextSetting.AddDate(0, 0, -1),
			}
		}
	}

	return sunTimesFromHomeZone(ctx)
}

// sunTimesFromHomeZone computes sunrise/sunset for the context's date from
// the zone.home entity's coordinates
func sunTimesFromHomeZone(ctx *Context) *SunTimes {
	home, ok := ctx.States["zone.home"]
	if !ok {
		return nil
	}
	lat, latOK := attrFloat(home.Attributes, "latitude")
	lon, lonOK := attrFloat(home.Attributes, "longitude")
	if !latOK || !lonOK {
		return nil
	}

	rise, set := sunrise.SunriseSunset(lat, lon, ctx.Now.Year(), ctx.Now.Month(), ctx.Now.Day())
	return &SunTimes{
		Sunrise: rise.In(ctx.Now.Location()),
		Sunset:  set.In(ctx.Now.Location()),
	}
}

func sameDate(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
