package models

// AnalysisItem is one item detected by backend video analysis. It is a transient
// projection of the backend's manifest and is never persisted by the portal.
type AnalysisItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	TimeRange     TimeRange       `json:"time_range"`
	Dimensions    Dimensions      `json:"dimensions"`
	Notes         string          `json:"notes,omitempty"`
	Attributes    []Attribute     `json:"attributes,omitempty"`
	PackagingPlan []PackagingStep `json:"packaging_plan,omitempty"`
}

// TimeRange locates an item within the source video, in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Dimensions are measured in centimeters.
type Dimensions struct {
	HeightCm float64 `json:"height_cm"`
	LengthCm float64 `json:"length_cm"`
	WidthCm  float64 `json:"width_cm"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PackagingStep is one entry of an item's ordered packaging plan.
type PackagingStep struct {
	MaterialID   string  `json:"material_id"`
	MaterialName string  `json:"material_name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	VolumeM3     float64 `json:"volume_m3"`
	LayerOrder   int     `json:"layer_order"`
}
