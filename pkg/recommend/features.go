package recommend

import (
	"encoding/json"
	"math"

	"github.com/agri-advisor/platform/pkg/validation"
)

// Canonical feature names, as the classifier was trained.
const (
	FeatureNitrogen    = "N"
	FeaturePhosphorus  = "P"
	FeaturePotassium   = "K"
	FeatureTemperature = "temperature"
	FeatureHumidity    = "humidity"
	FeaturePH          = "ph"
	FeatureRainfall    = "rainfall"
)

// Soil extras carried for schema-driven yield columns.
const (
	ExtraOrganicCarbon = "organic_carbon"
	ExtraSand          = "sand"
	ExtraSilt          = "silt"
	ExtraClay          = "clay"
)

// Placeholder macronutrients used when the soil record has none. SoilGrids
// does not provide N/P/K, so these stand in until a real source exists.
const (
	DefaultNitrogen   = 100.0
	DefaultPhosphorus = 50.0
	DefaultPotassium  = 50.0
)

// ForecastWindow is the number of leading forecast days aggregated.
const ForecastWindow = 7

// Soil is the stored or fetched soil record for a farm.
type Soil struct {
	PH            *float64 `json:"ph" validate:"required,gte=0,lte=14"`
	OrganicCarbon *float64 `json:"organic_carbon,omitempty" validate:"omitempty,gte=0"`
	Sand          *float64 `json:"sand,omitempty" validate:"omitempty,gte=0"`
	Silt          *float64 `json:"silt,omitempty" validate:"omitempty,gte=0"`
	Clay          *float64 `json:"clay,omitempty" validate:"omitempty,gte=0"`
	Nitrogen      *float64 `json:"nitrogen,omitempty" validate:"omitempty,gte=0"`
	Phosphorus    *float64 `json:"phosphorus,omitempty" validate:"omitempty,gte=0"`
	Potassium     *float64 `json:"potassium,omitempty" validate:"omitempty,gte=0"`
}

// ForecastDay is one daily weather forecast entry.
type ForecastDay struct {
	Temperature              *float64 `json:"temperature" validate:"required"`
	Humidity                 *float64 `json:"humidity" validate:"required,gte=0,lte=100"`
	PrecipitationProbability float64  `json:"precipitation_probability" validate:"gte=0,lte=1"`
	Rainfall                 float64  `json:"rainfall" validate:"gte=0"`
}

// Input is the raw request to the pipeline.
type Input struct {
	Soil        Soil          `json:"soil"`
	Forecast    []ForecastDay `json:"forecast" validate:"required,min=1,dive"`
	MarketPrice *float64      `json:"market_price_per_unit,omitempty" validate:"omitempty,gte=0"`
}

// FeatureVector is the assembled, immutable feature set of one request.
type FeatureVector struct {
	nitrogen    float64
	phosphorus  float64
	potassium   float64
	temperature float64
	humidity    float64
	ph          float64
	rainfall    float64
	extras      map[string]float64
}

// NewFeatureVector builds a vector from already aggregated values. Every
// value must be finite.
func NewFeatureVector(n, p, k, temperature, humidity, ph, rainfall float64, extras map[string]float64) (FeatureVector, error) {
	fv := FeatureVector{
		nitrogen:    n,
		phosphorus:  p,
		potassium:   k,
		temperature: temperature,
		humidity:    humidity,
		ph:          ph,
		rainfall:    rainfall,
		extras:      make(map[string]float64, len(extras)),
	}
	for name, v := range extras {
		fv.extras[name] = v
	}
	for name, v := range fv.Named() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FeatureVector{}, computeErr(StageAssemble, "feature %s is not finite", name)
		}
	}
	return fv, nil
}

func (fv FeatureVector) Nitrogen() float64    { return fv.nitrogen }
func (fv FeatureVector) Phosphorus() float64  { return fv.phosphorus }
func (fv FeatureVector) Potassium() float64   { return fv.potassium }
func (fv FeatureVector) Temperature() float64 { return fv.temperature }
func (fv FeatureVector) Humidity() float64    { return fv.humidity }
func (fv FeatureVector) PH() float64          { return fv.ph }
func (fv FeatureVector) Rainfall() float64    { return fv.rainfall }

func (fv FeatureVector) Extra(name string) (float64, bool) {
	v, ok := fv.extras[name]
	return v, ok
}

// Canonical returns the seven classifier features.
func (fv FeatureVector) Canonical() map[string]float64 {
	return map[string]float64{
		FeatureNitrogen:    fv.nitrogen,
		FeaturePhosphorus:  fv.phosphorus,
		FeaturePotassium:   fv.potassium,
		FeatureTemperature: fv.temperature,
		FeatureHumidity:    fv.humidity,
		FeaturePH:          fv.ph,
		FeatureRainfall:    fv.rainfall,
	}
}

// Named returns a fresh map of every name a model column may use for a
// feature: canonical names, the live-feature aliases and the soil extras.
func (fv FeatureVector) Named() map[string]float64 {
	named := fv.Canonical()
	named["topsoil_nitrogen"] = fv.nitrogen
	named["topsoil_phh2o"] = fv.ph
	named["soil_ph"] = fv.ph
	named["avg_temp_celsius"] = fv.temperature
	named["average_temperature"] = fv.temperature
	named["avg_humidity_percent"] = fv.humidity
	named["average_humidity"] = fv.humidity
	named["total_rainfall_mm"] = fv.rainfall
	named["total_rainfall"] = fv.rainfall
	for name, v := range fv.extras {
		named[name] = v
		named["topsoil_"+name] = v
	}
	return named
}

func (fv FeatureVector) MarshalJSON() ([]byte, error) {
	out := fv.Canonical()
	for name, v := range fv.extras {
		out[name] = v
	}
	return json.Marshal(out)
}

// Assemble validates raw input and aggregates the leading forecast window.
func Assemble(in Input) (FeatureVector, error) {
	if len(in.Forecast) == 0 {
		return FeatureVector{}, inputErr(StageAssemble, "forecast must contain at least one day")
	}
	if err := validation.Struct(in); err != nil {
		return FeatureVector{}, newError(KindInputValidation, StageAssemble, err)
	}

	window := in.Forecast
	if len(window) > ForecastWindow {
		window = window[:ForecastWindow]
	}
	var tempSum, humSum, rainSum float64
	for _, day := range window {
		tempSum += *day.Temperature
		humSum += *day.Humidity
		rainSum += day.Rainfall
	}
	days := float64(len(window))

	extras := make(map[string]float64, 4)
	for name, v := range map[string]*float64{
		ExtraOrganicCarbon: in.Soil.OrganicCarbon,
		ExtraSand:          in.Soil.Sand,
		ExtraSilt:          in.Soil.Silt,
		ExtraClay:          in.Soil.Clay,
	} {
		if v != nil {
			extras[name] = *v
		}
	}

	return NewFeatureVector(
		valueOr(in.Soil.Nitrogen, DefaultNitrogen),
		valueOr(in.Soil.Phosphorus, DefaultPhosphorus),
		valueOr(in.Soil.Potassium, DefaultPotassium),
		tempSum/days,
		humSum/days,
		*in.Soil.PH,
		rainSum,
		extras,
	)
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
