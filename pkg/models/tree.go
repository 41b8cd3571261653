package models

// --- Price trees ---

// TreeNode is a single state in a discrete-time price tree: a price and
// the unconditional probability of reaching it at its depth level.
type TreeNode struct {
	Price       float64 `json:"price"`
	Probability float64 `json:"probability"`
	Level       int     `json:"level"`
}

// LevelStat tags a cross-sectional statistic with a caller-chosen time
// index, supporting shifted time axes for sub-trees.
type LevelStat struct {
	TimeIndex int     `json:"time_index"`
	Value     float64 `json:"value"`
}

// LevelSummary holds both moments for one tree level.
type LevelSummary struct {
	Level       int     `json:"level"`
	Expectation float64 `json:"expectation"`
	Variance    float64 `json:"variance"`
}
