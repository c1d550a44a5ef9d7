package services

import (
	"fmt"
	"sort"
	"strings"

	"hunter-backend/models"
	"hunter-backend/utils"
)

// RunReport aggregates statistics over one run's normalized listings,
// printed after a full multi-source run.
type RunReport struct {
	TotalListings   int
	BySource        map[models.Source]int
	ByCity          map[string]int
	WithAuctionDate int

	PricedListings int
	AveragePLN     float64
	MinPLN         int64
	MaxPLN         int64
	MostExpensive  *models.Listing
}

// InsightService computes summary statistics for scraped listings.
type InsightService struct {
	logger *utils.Logger
}

// NewInsightService creates an InsightService with the given logger.
func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes a RunReport over the given listings.
func (s *InsightService) Generate(listings []*models.Listing) *RunReport {
	report := &RunReport{
		BySource: make(map[models.Source]int),
		ByCity:   make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var total int64
	for _, l := range listings {
		report.BySource[l.Source]++
		if l.City != "" {
			report.ByCity[l.City]++
		}
		if l.AuctionDate != nil {
			report.WithAuctionDate++
		}
		if l.PricePLN == nil {
			continue
		}
		p := *l.PricePLN
		if report.PricedListings == 0 {
			report.MinPLN, report.MaxPLN = p, p
			report.MostExpensive = l
		}
		if p < report.MinPLN {
			report.MinPLN = p
		}
		if p > report.MaxPLN {
			report.MaxPLN = p
			report.MostExpensive = l
		}
		total += p
		report.PricedListings++
	}

	if report.PricedListings > 0 {
		report.AveragePLN = float64(total) / float64(report.PricedListings) / 100
	}

	return report
}

// Print renders the report to stdout.
func (s *InsightService) Print(r *RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  SCRAPE RUN SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total listings     : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Printf("  With auction date  : \033[1m%d\033[0m\n", r.WithAuctionDate)
	for _, src := range sortedSources(r.BySource) {
		fmt.Printf("  %-18s : %d\n", src, r.BySource[src])
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Price Statistics (PLN)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Printf("  Priced listings : %d\n", r.PricedListings)
		fmt.Printf("  Average price   : \033[1;32m%.2f zł\033[0m\n", r.AveragePLN)
		fmt.Printf("  Minimum price   : \033[1;32m%.2f zł\033[0m\n", float64(r.MinPLN)/100)
		fmt.Printf("  Maximum price   : \033[1;32m%.2f zł\033[0m\n", float64(r.MaxPLN)/100)
		if r.MostExpensive != nil {
			fmt.Printf("  Most expensive  : %s (%s)\n", truncate(r.MostExpensive.Title, 40), r.MostExpensive.City)
		}
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Listings by City\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByCity) == 0 {
		fmt.Printf("  No city data\n")
	} else {
		type cityCount struct {
			city  string
			count int
		}
		var cities []cityCount
		for city, cnt := range r.ByCity {
			cities = append(cities, cityCount{city, cnt})
		}
		sort.Slice(cities, func(i, j int) bool {
			if cities[i].count != cities[j].count {
				return cities[i].count > cities[j].count
			}
			return cities[i].city < cities[j].city
		})
		if len(cities) > 10 {
			cities = cities[:10]
		}
		for _, cc := range cities {
			fmt.Printf("  %-30s %d\n", truncate(cc.city, 28), cc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func sortedSources(m map[models.Source]int) []models.Source {
	out := make([]models.Source, 0, len(m))
	for src := range m {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
