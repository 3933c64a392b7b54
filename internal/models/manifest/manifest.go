package manifest

import "time"

type Source struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Bytes  int    `json:"bytes"`
}

type Output struct {
	Profile     string `json:"profile"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Bytes       int64  `json:"bytes"`
	ContentType string `json:"contentType"`
	Watermark   string `json:"watermark,omitempty"`
}

type Failure struct {
	Profile string `json:"profile"`
	Error   string `json:"error"`
}

type Manifest struct {
	Key         string    `json:"key"`
	Source      Source    `json:"source"`
	Outputs     []Output  `json:"outputs"`
	Failures    []Failure `json:"failures,omitempty"`
	Deduped     bool      `json:"deduped"`
	ProcessedAt time.Time `json:"processedAt"`
}
