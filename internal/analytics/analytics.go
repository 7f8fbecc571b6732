package analytics

import (
	"sort"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"
)

// TopProductCount caps the top-products ranking.
const TopProductCount = 4

var weekdayLabels = [7]string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"}

// DaySales is one point of the trailing-week sales series.
type DaySales struct {
	Day    string `json:"day"`
	Sales  int64  `json:"sales"`
	Orders int    `json:"orders"`
}

// CategoryShare is one category's percentage of items sold.
type CategoryShare struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// TopProduct ranks a product by revenue over the trailing week. Products are
// grouped by name, not id: a renamed product splits its history. Known
// limitation, kept on purpose.
type TopProduct struct {
	Name    string `json:"name"`
	Orders  int    `json:"orders"`
	Revenue int64  `json:"revenue"`
}

// Metrics holds today's aggregates.
type Metrics struct {
	TodaySales     int64 `json:"today_sales"`
	TodayOrders    int   `json:"today_orders"`
	AvgTicket      int64 `json:"avg_ticket"`
	ConversionRate int   `json:"conversion_rate"`
}

// Snapshot is derived from the order history plus "now" and never persisted.
type Snapshot struct {
	DailySales        []DaySales      `json:"daily_sales"`
	CategoryBreakdown []CategoryShare `json:"category_breakdown"`
	TopProducts       []TopProduct    `json:"top_products"`
	Metrics           Metrics         `json:"metrics"`
}

// fallback data shown instead of empty charts while there is no history yet
var (
	fallbackCategories = []CategoryShare{
		{Name: "Marmitas", Value: 45},
		{Name: "Burgers", Value: 30},
		{Name: "Pizzas", Value: 15},
		{Name: "Bebidas", Value: 10},
	}
	fallbackTopProducts = []TopProduct{
		{Name: "Sem dados ainda", Orders: 0, Revenue: 0},
	}
)

// Compute derives a snapshot from the full order history. The series and
// breakdowns cover the trailing 7 days by elapsed wall-clock days; today's
// metrics cover orders since the start of the current calendar day.
func Compute(orders []models.Order, now time.Time) Snapshot {
	start := time.Now()
	defer func() {
		util.AnalyticsRecomputeLatency.Observe(time.Since(start).Seconds())
	}()

	week := trailingWeek(orders, now)

	snap := Snapshot{
		DailySales:        dailySales(week, now),
		CategoryBreakdown: categoryBreakdown(week),
		TopProducts:       topProducts(week),
		Metrics:           todayMetrics(orders, now),
	}

	if len(snap.CategoryBreakdown) == 0 {
		snap.CategoryBreakdown = fallbackCategories
	}
	if len(snap.TopProducts) == 0 {
		snap.TopProducts = fallbackTopProducts
	}
	return snap
}

func trailingWeek(orders []models.Order, now time.Time) []models.Order {
	var out []models.Order
	for _, o := range orders {
		days := int(now.Sub(o.CreatedAt).Hours() / 24)
		if days >= 0 && days < 7 {
			out = append(out, o)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dailySales(week []models.Order, now time.Time) []DaySales {
	series := make([]DaySales, 0, 7)
	for i := 6; i >= 0; i-- {
		day := startOfDay(now.AddDate(0, 0, -i))
		point := DaySales{Day: weekdayLabels[day.Weekday()]}
		for _, o := range week {
			if startOfDay(o.CreatedAt).Equal(day) {
				point.Sales += o.Total
				point.Orders++
			}
		}
		series = append(series, point)
	}
	return series
}

func categoryBreakdown(week []models.Order) []CategoryShare {
	counts := map[string]int{}
	total := 0
	for _, o := range week {
		for _, item := range o.Items {
			cat := item.Category
			if cat == "" {
				cat = "outros"
			}
			counts[cat] += item.Quantity
			total += item.Quantity
		}
	}
	if total == 0 {
		return nil
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]CategoryShare, 0, len(names))
	for _, name := range names {
		// integer percentage of items sold, not of revenue
		pct := int(float64(counts[name])/float64(total)*100 + 0.5)
		out = append(out, CategoryShare{Name: title(name), Value: pct})
	}
	return out
}

func title(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}

func topProducts(week []models.Order) []TopProduct {
	type acc struct {
		orders  int
		revenue int64
	}
	byName := map[string]*acc{}
	for _, o := range week {
		for _, item := range o.Items {
			a := byName[item.Name]
			if a == nil {
				a = &acc{}
				byName[item.Name] = a
			}
			a.orders += item.Quantity
			a.revenue += item.Price * int64(item.Quantity)
		}
	}

	out := make([]TopProduct, 0, len(byName))
	for name, a := range byName {
		out = append(out, TopProduct{Name: name, Orders: a.orders, Revenue: a.revenue})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > TopProductCount {
		out = out[:TopProductCount]
	}
	return out
}

func todayMetrics(orders []models.Order, now time.Time) Metrics {
	dayStart := startOfDay(now)

	var m Metrics
	for _, o := range orders {
		if o.CreatedAt.Before(dayStart) {
			continue
		}
		m.TodaySales += o.Total
		m.TodayOrders++
	}
	if m.TodayOrders > 0 {
		m.AvgTicket = m.TodaySales / int64(m.TodayOrders)
		// simplified conversion proxy, capped at 100
		m.ConversionRate = m.TodayOrders * 2
		if m.ConversionRate > 100 {
			m.ConversionRate = 100
		}
	}
	return m
}
