package weather

import (
	"bytes"
	"encoding/json"
)

// Normalize merges the three upstream payloads into one WeatherSnapshot.
// A nil payload, or a nil block anywhere along a lookup path, is treated as a
// missing parent: the affected fields come out as nil and the lists as empty.
// Values are copied byte for byte as received; nothing is sorted, filtered,
// converted or type-checked.
// EventID, FetchedAt and Degraded are left for the caller to stamp.
func Normalize(current *CurrentResponse, forecast *ForecastResponse, alerts *AlertsResponse) WeatherSnapshot {
	var (
		loc       LocationBlock
		cur       CurrentBlock
		condition ConditionBlock
		air       AirQualityBlock
		days      []ForecastDayBlock
		alertList []AlertBlock
	)

	if current != nil {
		if current.Location != nil {
			loc = *current.Location
		}
		if current.Current != nil {
			cur = *current.Current
		}
	}
	if cur.Condition != nil {
		condition = *cur.Condition
	}
	if cur.AirQuality != nil {
		air = *cur.AirQuality
	}
	if forecast != nil && forecast.Forecast != nil {
		days = forecast.Forecast.ForecastDay
	}
	if alerts != nil && alerts.Alerts != nil {
		alertList = alerts.Alerts.Alert
	}

	snapshot := WeatherSnapshot{
		Degraded: []Section{},

		Name:      leaf(loc.Name),
		Region:    leaf(loc.Region),
		Country:   leaf(loc.Country),
		Lat:       leaf(loc.Lat),
		Lon:       leaf(loc.Lon),
		Localtime: leaf(loc.Localtime),

		TempC:         leaf(cur.TempC),
		IsDay:         leaf(cur.IsDay),
		ConditionText: leaf(condition.Text),
		ConditionIcon: leaf(condition.Icon),
		WindKph:       leaf(cur.WindKph),
		WindDegree:    leaf(cur.WindDegree),
		WindDir:       leaf(cur.WindDir),
		PressureIn:    leaf(cur.PressureIn),
		PrecipIn:      leaf(cur.PrecipIn),
		Humidity:      leaf(cur.Humidity),
		Cloud:         leaf(cur.Cloud),
		FeelsLikeC:    leaf(cur.FeelsLikeC),
		UV:            leaf(cur.UV),

		AirQuality: AirQuality{
			CO:           leaf(air.CO),
			NO2:          leaf(air.NO2),
			O3:           leaf(air.O3),
			SO2:          leaf(air.SO2),
			PM25:         leaf(air.PM25),
			PM10:         leaf(air.PM10),
			USEPAIndex:   leaf(air.USEPAIndex),
			GBDefraIndex: leaf(air.GBDefraIndex),
		},

		Alerts:   make([]Alert, 0, len(alertList)),
		Forecast: make([]ForecastEntry, 0, len(days)),
	}

	for _, a := range alertList {
		snapshot.Alerts = append(snapshot.Alerts, Alert{
			Headline:    leaf(a.Headline),
			Severity:    leaf(a.Severity),
			Description: leaf(a.Desc),
			Instruction: leaf(a.Instruction),
		})
	}

	for _, d := range days {
		var (
			day     DayBlock
			dayCond ConditionBlock
		)
		if d.Day != nil {
			day = *d.Day
		}
		if day.Condition != nil {
			dayCond = *day.Condition
		}
		snapshot.Forecast = append(snapshot.Forecast, ForecastEntry{
			Date:      leaf(d.Date),
			MaxTempC:  leaf(day.MaxTempC),
			MinTempC:  leaf(day.MinTempC),
			Condition: leaf(dayCond.Text),
		})
	}

	return snapshot
}

// leaf copies a raw value so the snapshot never aliases the payload. An
// explicit JSON null is folded into nil.
func leaf(v json.RawMessage) json.RawMessage {
	if v == nil || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	return bytes.Clone(v)
}
