package ingestion

// soilGridsResponse is the subset of the SoilGrids v2.0 properties/query
// response we read.
type soilGridsResponse struct {
	Properties struct {
		Layers []soilGridsLayer `json:"layers"`
	} `json:"properties"`
}

type soilGridsLayer struct {
	Name        string `json:"name"`
	UnitMeasure struct {
		DFactor     float64 `json:"d_factor"`
		TargetUnits string  `json:"target_units"`
	} `json:"unit_measure"`
	Depths []struct {
		Label  string              `json:"label"`
		Values map[string]*float64 `json:"values"`
	} `json:"depths"`
}

// oneCallResponse is the subset of the OpenWeather One Call 3.0 response we read.
type oneCallResponse struct {
	Lat   float64        `json:"lat"`
	Lon   float64        `json:"lon"`
	Daily []oneCallDaily `json:"daily"`
}

type oneCallDaily struct {
	Dt   int64 `json:"dt"`
	Temp *struct {
		Day float64 `json:"day"`
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
	Humidity *float64 `json:"humidity"`
	Pop      float64  `json:"pop"`
	Rain     float64  `json:"rain"`
}
