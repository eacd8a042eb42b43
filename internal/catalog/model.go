package catalog

// Source is a registered market data feed offered through the marketplace.
type Source struct {
	ID              string
	Name            string
	Description     string
	ProviderAddress string
	FeePerCall      int64
	Currency        string
	Active          bool
}
