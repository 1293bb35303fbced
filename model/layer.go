package model

// SplitResult 分割结果
type SplitResult struct {
	MD5             string   `json:"md5,omitempty"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	Seed            int64    `json:"seed"`
	Radius          int      `json:"radius"`
	Layers          int      `json:"layers"`
	CirclesPerLayer int      `json:"circles_per_layer"`
	Coverage        float64  `json:"coverage"`
	Dir             string   `json:"dir"`
	Base            string   `json:"base"`
	LayerFiles      []string `json:"layer_files"`
	Timestamp       int64    `json:"timestamp"`
}

// Manifest 与分割结果一同写出的清单，合成时据此确定底图
type Manifest struct {
	Base            string   `json:"base"`
	Layers          []string `json:"layers"`
	LayerCount      int      `json:"layer_count"`
	CirclesPerLayer int      `json:"circles_per_layer"`
	Radius          int      `json:"radius"`
	Seed            int64    `json:"seed"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
}

// SplitResponse 分割响应
type SplitResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *SplitResult `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
