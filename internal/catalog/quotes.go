package catalog

import (
	"hash/fnv"
	"time"
)

// Quote is a single data point served for a source.
type Quote struct {
	Source    string    `json:"source"`
	Value     float64   `json:"value"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}

var baseValues = map[string]float64{
	"btc-usd":        67_250.0,
	"eth-usd":        3_480.0,
	"kimchi-premium": 2.4,
	"funding-rates":  0.012,
}

// QuoteFor produces the current value for a source. Values are synthesized
// deterministically from the source ID and the minute bucket; the real feed
// connectors live behind the provider network, not in this service.
func QuoteFor(source Source, now time.Time) Quote {
	base, ok := baseValues[source.ID]
	if !ok {
		base = 100.0
	}

	h := fnv.New32a()
	h.Write([]byte(source.ID))
	h.Write([]byte(now.UTC().Format("2006-01-02T15:04")))
	jitter := float64(int64(h.Sum32()%2001)-1000) / 1000.0 // [-1, 1]

	return Quote{
		Source:    source.ID,
		Value:     base * (1 + jitter*0.005),
		Currency:  source.Currency,
		Timestamp: now.UTC(),
	}
}
