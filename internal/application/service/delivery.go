package service

import (
	"strings"

	"github.com/sangkips/storefront-api/internal/config"
)

// DeliveryQuote is the fee charged for a delivery zone
type DeliveryQuote struct {
	Zone string `json:"zone"`
	Fee  int64  `json:"-"`
}

// DeliveryCalculator prices deliveries with a two-zone table
type DeliveryCalculator struct {
	insideZone  string
	outsideZone string
	keywords    []string
	fees        map[string]int64
}

// NewDeliveryCalculator creates a calculator from configuration
func NewDeliveryCalculator(cfg config.DeliveryConfig) *DeliveryCalculator {
	keywords := make([]string, 0, len(cfg.InsideKeywords))
	for _, k := range cfg.InsideKeywords {
		keywords = append(keywords, strings.ToLower(k))
	}
	return &DeliveryCalculator{
		insideZone:  cfg.InsideZone,
		outsideZone: cfg.OutsideZone,
		keywords:    keywords,
		fees: map[string]int64{
			cfg.InsideZone:  cfg.InsideFee,
			cfg.OutsideZone: cfg.OutsideFee,
		},
	}
}

// Zones lists the configured zones and their fees
func (c *DeliveryCalculator) Zones() []DeliveryQuote {
	return []DeliveryQuote{
		{Zone: c.insideZone, Fee: c.fees[c.insideZone]},
		{Zone: c.outsideZone, Fee: c.fees[c.outsideZone]},
	}
}

// Quote resolves the zone for an address. A known explicit zone wins;
// otherwise the city and then the address are matched against the inside
// keywords. Anything unmatched is outside.
func (c *DeliveryCalculator) Quote(zone, city, address string) DeliveryQuote {
	zone = strings.ToLower(strings.TrimSpace(zone))
	if fee, ok := c.fees[zone]; ok {
		return DeliveryQuote{Zone: zone, Fee: fee}
	}
	if c.matches(city) || c.matches(address) {
		return DeliveryQuote{Zone: c.insideZone, Fee: c.fees[c.insideZone]}
	}
	return DeliveryQuote{Zone: c.outsideZone, Fee: c.fees[c.outsideZone]}
}

func (c *DeliveryCalculator) matches(text string) bool {
	text = strings.ToLower(text)
	if text == "" {
		return false
	}
	for _, k := range c.keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
