package weather

import (
	"bytes"
	"encoding/json"
	"time"
)

// Section names a part of the snapshot sourced from one upstream call.
type Section string

const (
	SectionCurrent  Section = "current"
	SectionForecast Section = "forecast"
	SectionAlerts   Section = "alerts"
)

// Upstream leaves are kept as json.RawMessage and pass through exactly as
// received, whatever their JSON type. Blocks are pointers so that an absent
// block stays distinguishable from an empty one; a block or list holding
// something other than an object or array decodes as empty instead of failing
// the whole payload.

// CurrentResponse is the decoded body of current.json (with aqi=yes).
type CurrentResponse struct {
	Location *LocationBlock `json:"location"`
	Current  *CurrentBlock  `json:"current"`
}

type LocationBlock struct {
	Name      json.RawMessage `json:"name"`
	Region    json.RawMessage `json:"region"`
	Country   json.RawMessage `json:"country"`
	Lat       json.RawMessage `json:"lat"`
	Lon       json.RawMessage `json:"lon"`
	Localtime json.RawMessage `json:"localtime"`
}

func (b *LocationBlock) UnmarshalJSON(data []byte) error {
	type plain LocationBlock
	return decodeObject(data, (*plain)(b))
}

type CurrentBlock struct {
	TempC      json.RawMessage  `json:"temp_c"`
	IsDay      json.RawMessage  `json:"is_day"`
	Condition  *ConditionBlock  `json:"condition"`
	WindKph    json.RawMessage  `json:"wind_kph"`
	WindDegree json.RawMessage  `json:"wind_degree"`
	WindDir    json.RawMessage  `json:"wind_dir"`
	PressureIn json.RawMessage  `json:"pressure_in"`
	PrecipIn   json.RawMessage  `json:"precip_in"`
	Humidity   json.RawMessage  `json:"humidity"`
	Cloud      json.RawMessage  `json:"cloud"`
	FeelsLikeC json.RawMessage  `json:"feelslike_c"`
	UV         json.RawMessage  `json:"uv"`
	AirQuality *AirQualityBlock `json:"air_quality"`
}

func (b *CurrentBlock) UnmarshalJSON(data []byte) error {
	type plain CurrentBlock
	return decodeObject(data, (*plain)(b))
}

type ConditionBlock struct {
	Text json.RawMessage `json:"text"`
	Icon json.RawMessage `json:"icon"`
}

func (b *ConditionBlock) UnmarshalJSON(data []byte) error {
	type plain ConditionBlock
	return decodeObject(data, (*plain)(b))
}

type AirQualityBlock struct {
	CO           json.RawMessage `json:"co"`
	NO2          json.RawMessage `json:"no2"`
	O3           json.RawMessage `json:"o3"`
	SO2          json.RawMessage `json:"so2"`
	PM25         json.RawMessage `json:"pm2_5"`
	PM10         json.RawMessage `json:"pm10"`
	USEPAIndex   json.RawMessage `json:"us-epa-index"`
	GBDefraIndex json.RawMessage `json:"gb-defra-index"`
}

func (b *AirQualityBlock) UnmarshalJSON(data []byte) error {
	type plain AirQualityBlock
	return decodeObject(data, (*plain)(b))
}

// ForecastResponse is the decoded body of forecast.json.
type ForecastResponse struct {
	Forecast *ForecastBlock `json:"forecast"`
}

type ForecastBlock struct {
	ForecastDay []ForecastDayBlock `json:"forecastday"`
}

func (b *ForecastBlock) UnmarshalJSON(data []byte) error {
	var raw struct {
		ForecastDay json.RawMessage `json:"forecastday"`
	}
	if err := decodeObject(data, &raw); err != nil {
		return err
	}
	return decodeArray(raw.ForecastDay, &b.ForecastDay)
}

type ForecastDayBlock struct {
	Date json.RawMessage `json:"date"`
	Day  *DayBlock       `json:"day"`
}

func (b *ForecastDayBlock) UnmarshalJSON(data []byte) error {
	type plain ForecastDayBlock
	return decodeObject(data, (*plain)(b))
}

type DayBlock struct {
	MaxTempC  json.RawMessage `json:"maxtemp_c"`
	MinTempC  json.RawMessage `json:"mintemp_c"`
	Condition *ConditionBlock `json:"condition"`
}

func (b *DayBlock) UnmarshalJSON(data []byte) error {
	type plain DayBlock
	return decodeObject(data, (*plain)(b))
}

// AlertsResponse is the decoded body of alerts.json.
type AlertsResponse struct {
	Alerts *AlertsBlock `json:"alerts"`
}

type AlertsBlock struct {
	Alert []AlertBlock `json:"alert"`
}

func (b *AlertsBlock) UnmarshalJSON(data []byte) error {
	var raw struct {
		Alert json.RawMessage `json:"alert"`
	}
	if err := decodeObject(data, &raw); err != nil {
		return err
	}
	return decodeArray(raw.Alert, &b.Alert)
}

type AlertBlock struct {
	Headline    json.RawMessage `json:"headline"`
	Severity    json.RawMessage `json:"severity"`
	Desc        json.RawMessage `json:"desc"`
	Instruction json.RawMessage `json:"instruction"`
}

func (b *AlertBlock) UnmarshalJSON(data []byte) error {
	type plain AlertBlock
	return decodeObject(data, (*plain)(b))
}

// decodeObject decodes data into v when it is a JSON object and leaves v
// untouched otherwise.
func decodeObject[T any](data []byte, v *T) error {
	if !startsWith(data, '{') {
		return nil
	}
	return json.Unmarshal(data, v)
}

// decodeArray is decodeObject for lists.
func decodeArray[T any](data []byte, v *[]T) error {
	if !startsWith(data, '[') {
		return nil
	}
	return json.Unmarshal(data, v)
}

func startsWith(data []byte, c byte) bool {
	data = bytes.TrimLeft(data, " \t\r\n")
	return len(data) > 0 && data[0] == c
}

// WeatherSnapshot is the flat record published once per invocation.
// None of the fields carry omitempty: the key set is the same on every run and
// missing upstream values are encoded as null.
type WeatherSnapshot struct {
	EventID   string    `json:"event_id"`
	FetchedAt time.Time `json:"fetched_at"`
	Degraded  []Section `json:"degraded"`

	// Location metadata
	Name      json.RawMessage `json:"name"`
	Region    json.RawMessage `json:"region"`
	Country   json.RawMessage `json:"country"`
	Lat       json.RawMessage `json:"lat"`
	Lon       json.RawMessage `json:"lon"`
	Localtime json.RawMessage `json:"localtime"`

	// Current conditions
	TempC         json.RawMessage `json:"temp_c"`
	IsDay         json.RawMessage `json:"is_day"`
	ConditionText json.RawMessage `json:"condition_text"`
	ConditionIcon json.RawMessage `json:"condition_icon"`
	WindKph       json.RawMessage `json:"wind_kph"`
	WindDegree    json.RawMessage `json:"wind_degree"`
	WindDir       json.RawMessage `json:"wind_dir"`
	PressureIn    json.RawMessage `json:"pressure_in"`
	PrecipIn      json.RawMessage `json:"precip_in"`
	Humidity      json.RawMessage `json:"humidity"`
	Cloud         json.RawMessage `json:"cloud"`
	FeelsLikeC    json.RawMessage `json:"feelslike_c"`
	UV            json.RawMessage `json:"uv"`

	AirQuality AirQuality      `json:"air_quality"`
	Alerts     []Alert         `json:"alerts"`
	Forecast   []ForecastEntry `json:"forecast"`
}

type AirQuality struct {
	CO           json.RawMessage `json:"co"`
	NO2          json.RawMessage `json:"no2"`
	O3           json.RawMessage `json:"o3"`
	SO2          json.RawMessage `json:"so2"`
	PM25         json.RawMessage `json:"pm2_5"`
	PM10         json.RawMessage `json:"pm10"`
	USEPAIndex   json.RawMessage `json:"us-epa-index"`
	GBDefraIndex json.RawMessage `json:"gb-defra-index"`
}

type Alert struct {
	Headline    json.RawMessage `json:"headline"`
	Severity    json.RawMessage `json:"severity"`
	Description json.RawMessage `json:"description"`
	Instruction json.RawMessage `json:"instruction"`
}

// ForecastEntry is one day of the forecast window, in upstream order.
type ForecastEntry struct {
	Date      json.RawMessage `json:"date"`
	MaxTempC  json.RawMessage `json:"maxtemp_c"`
	MinTempC  json.RawMessage `json:"mintemp_c"`
	Condition json.RawMessage `json:"condition"`
}

// RunRecord describes the outcome of one pipeline invocation.
type RunRecord struct {
	ID         string    `json:"id"`
	Location   string    `json:"location"`
	StartedAt  time.Time `json:"startedAt"`  // always UTC
	FinishedAt time.Time `json:"finishedAt"` // always UTC
	Degraded   []Section `json:"degraded"`
	Published  bool      `json:"published"`
	EventID    string    `json:"eventId,omitempty"`
	Error      string    `json:"error,omitempty"`
}
