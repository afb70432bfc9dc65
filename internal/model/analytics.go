package model

// CategoryStats holds descriptive statistics for one category.
// It is always a fresh projection of the current transaction set.
type CategoryStats struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Total      float64 `json:"total"`
	Mean       float64 `json:"mean"`
	Median     float64 `json:"median"`
	StdDev     float64 `json:"std_dev"`
	Volatility float64 `json:"volatility"` // min(StdDev/Mean, 1), 0 when Mean is 0
}

// Severity grades how far an anomaly deviates from its category norm.
type Severity string

// Anomaly severities.
const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AnomalyDirection tells whether an anomalous amount is above or below the norm.
type AnomalyDirection string

// Anomaly directions.
const (
	DirectionUnusuallyHigh AnomalyDirection = "unusually_high"
	DirectionUnusuallyLow  AnomalyDirection = "unusually_low"
)

// Anomaly flags a transaction that deviates from its category's norm.
type Anomaly struct {
	Severity    Severity         `json:"severity"`
	Direction   AnomalyDirection `json:"direction"`
	Transaction Transaction      `json:"transaction"`
	ZScore      float64          `json:"z_score"`
}

// Trend is the direction of a forecast series.
type Trend string

// Trend directions.
const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// ForecastMethod records which algorithm produced a forecast.
type ForecastMethod string

// Forecast methods.
const (
	MethodNone       ForecastMethod = "none"
	MethodSimple     ForecastMethod = "simple"
	MethodRegression ForecastMethod = "regression"
)

// Scenarios brackets a prediction.
type Scenarios struct {
	Optimistic  float64 `json:"optimistic"`
	Realistic   float64 `json:"realistic"`
	Pessimistic float64 `json:"pessimistic"`
}

// Forecast is a prediction of next-period spending.
type Forecast struct {
	Category       *string        `json:"category"` // nil for the whole portfolio
	Trend          Trend          `json:"trend"`
	Method         ForecastMethod `json:"method"`
	Scenarios      Scenarios      `json:"scenarios"`
	DataPoints     int            `json:"data_points"`
	Prediction     float64        `json:"prediction"`
	Confidence     float64        `json:"confidence"`
	Slope          float64        `json:"slope"`
	RSquared       float64        `json:"r_squared"`
	SeasonalFactor float64        `json:"seasonal_factor"`
}

// ClusterKind records which pass formed a cluster.
type ClusterKind string

// Cluster kinds.
const (
	ClusterKeyword ClusterKind = "keyword"
	ClusterAmount  ClusterKind = "amount"
)

// Cluster groups transactions that could become their own sub-category.
type Cluster struct {
	Identifier    string        `json:"identifier"`
	Kind          ClusterKind   `json:"kind"`
	SuggestedName string        `json:"suggested_name"`
	Transactions  []Transaction `json:"transactions"`
	TotalAmount   float64       `json:"total_amount"`
	AverageAmount float64       `json:"average_amount"`
	Confidence    float64       `json:"confidence"`
}

// SplitSuggestion proposes splitting a category into the given clusters.
type SplitSuggestion struct {
	Category    string    `json:"category"`
	Clusters    []Cluster `json:"clusters"`
	Unclustered int       `json:"unclustered"`
}

// Priority ranks recommendations and alerts.
type Priority string

// Priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities so that high sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// RecommendationType identifies what a recommendation is about.
type RecommendationType string

// Recommendation types.
const (
	RecommendBudgetAdjustment RecommendationType = "budget_adjustment"
	RecommendRiskAlert        RecommendationType = "risk_alert"
	RecommendSavings          RecommendationType = "savings_opportunity"
	RecommendCategorySplit    RecommendationType = "category_split"
	RecommendAnomalyReview    RecommendationType = "anomaly_review"
)

// Recommendation is an actionable suggestion surfaced to the user.
type Recommendation struct {
	Type     RecommendationType `json:"type"`
	Priority Priority           `json:"priority"`
	Title    string             `json:"title"`
	Message  string             `json:"message"`
	Action   string             `json:"action"`
	Category string             `json:"category,omitempty"`
	Impact   float64            `json:"impact"`
}

// BudgetSuggestion is a recommended monthly budget for one category.
type BudgetSuggestion struct {
	Category    string  `json:"category"`
	Reasoning   string  `json:"reasoning"`
	Recommended float64 `json:"recommended"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Confidence  float64 `json:"confidence"`
}
