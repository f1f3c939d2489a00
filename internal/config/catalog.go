package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/holdfast/holdfast/internal/domain"
	"gopkg.in/yaml.v3"
)

// Market describes how symbols of one exchange are spelled
type Market struct {
	Code   string `yaml:"code" json:"code"`
	Name   string `yaml:"name" json:"name"`
	Suffix string `yaml:"suffix" json:"suffix"`
}

// Catalog holds the enumerated values callers pick from
type Catalog struct {
	Categories             []string `yaml:"categories" json:"categories"`
	Brokers                []string `yaml:"brokers" json:"brokers"`
	Markets                []Market `yaml:"markets" json:"markets"`
	BibliographyCategories []string `yaml:"bibliography_categories" json:"bibliography_categories"`
	DefaultCategory        string   `yaml:"default_category" json:"default_category"`
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() *Catalog {
	return &Catalog{
		Categories:             []string{"Stocks", "Bonds", "CEDEAR", "Crypto", "Funds", "Bills", "Corporate Bonds"},
		Brokers:                []string{"Eco", "PPI", "Galicia", "Binance"},
		Markets:                []Market{{Code: "AR", Name: "Argentina", Suffix: ".BA"}, {Code: "US", Name: "United States"}},
		BibliographyCategories: []string{"Books", "Articles", "Papers", "Videos", "Other"},
		DefaultCategory:        "Stocks",
	}
}

// LoadCatalog reads a YAML catalog; missing sections fall back to the defaults
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	def := DefaultCatalog()
	if len(c.Categories) == 0 {
		c.Categories = def.Categories
	}
	if len(c.Brokers) == 0 {
		c.Brokers = def.Brokers
	}
	if len(c.Markets) == 0 {
		c.Markets = def.Markets
	}
	if len(c.BibliographyCategories) == 0 {
		c.BibliographyCategories = def.BibliographyCategories
	}
	if c.DefaultCategory == "" {
		c.DefaultCategory = c.Categories[0]
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

// Validate checks the catalog is self-consistent
func (c *Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("catalog needs at least one category")
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("catalog needs at least one broker")
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("catalog needs at least one market")
	}
	if !contains(c.Categories, c.DefaultCategory) {
		return fmt.Errorf("default category %q is not a known category", c.DefaultCategory)
	}
	seen := make(map[string]bool)
	for _, m := range c.Markets {
		code := strings.ToUpper(m.Code)
		if code == "" {
			return fmt.Errorf("market code is required")
		}
		if seen[code] {
			return fmt.Errorf("duplicate market %q", code)
		}
		seen[code] = true
	}
	return nil
}

// Market looks up a market by code, case-insensitively
func (c *Catalog) Market(code string) (Market, bool) {
	for _, m := range c.Markets {
		if strings.EqualFold(m.Code, code) {
			return m, true
		}
	}
	return Market{}, false
}

// NormalizeSymbol applies the market suffix rules. An empty market leaves
// the symbol as typed. A symbol carrying another market's suffix is rejected.
func (c *Catalog) NormalizeSymbol(symbol, market string) (string, error) {
	const op = "normalize_symbol"
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return "", domain.NewValidationError(op, "symbol is required")
	}
	if market == "" {
		return symbol, nil
	}

	m, ok := c.Market(market)
	if !ok {
		return "", domain.NewValidationError(op, "unknown market %q", market)
	}

	suffix := strings.ToUpper(m.Suffix)
	for _, other := range c.Markets {
		otherSuffix := strings.ToUpper(other.Suffix)
		if otherSuffix == "" || otherSuffix == suffix {
			continue
		}
		if strings.HasSuffix(symbol, otherSuffix) {
			return "", domain.NewValidationError(op,
				"symbol %s has suffix %s but market is %s; did you mean %s?",
				symbol, otherSuffix, m.Code, strings.TrimSuffix(symbol, otherSuffix))
		}
	}

	if suffix != "" && !strings.HasSuffix(symbol, suffix) {
		symbol += suffix
	}
	return symbol, nil
}

// NormalizeBroker matches a broker name against the catalog, case-insensitively
func (c *Catalog) NormalizeBroker(broker string) (string, error) {
	broker = strings.TrimSpace(broker)
	for _, b := range c.Brokers {
		if strings.EqualFold(b, broker) {
			return b, nil
		}
	}
	return "", domain.NewValidationError("normalize_broker", "unknown broker %q", broker)
}

// NormalizeCategory matches a category; empty selects the default
func (c *Catalog) NormalizeCategory(category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return c.DefaultCategory, nil
	}
	for _, cat := range c.Categories {
		if strings.EqualFold(cat, category) {
			return cat, nil
		}
	}
	return "", domain.NewValidationError("normalize_category", "unknown category %q", category)
}

// NormalizeBibliographyCategory matches a bibliography category; empty selects the last one
func (c *Catalog) NormalizeBibliographyCategory(category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" && len(c.BibliographyCategories) > 0 {
		return c.BibliographyCategories[len(c.BibliographyCategories)-1], nil
	}
	for _, cat := range c.BibliographyCategories {
		if strings.EqualFold(cat, category) {
			return cat, nil
		}
	}
	return "", domain.NewValidationError("normalize_bibliography_category", "unknown bibliography category %q", category)
}

// NormalizeTransaction validates and canonicalizes a caller supplied transaction
func (c *Catalog) NormalizeTransaction(tx domain.Transaction, market string) (domain.Transaction, error) {
	symbol, err := c.NormalizeSymbol(tx.Symbol, market)
	if err != nil {
		return tx, err
	}
	broker, err := c.NormalizeBroker(tx.Broker)
	if err != nil {
		return tx, err
	}
	category, err := c.NormalizeCategory(tx.Category)
	if err != nil {
		return tx, err
	}
	tx.Symbol = symbol
	tx.Broker = broker
	tx.Category = category
	if err := tx.Validate(); err != nil {
		return tx, err
	}
	return tx, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
