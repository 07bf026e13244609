package core

// CategoryAmount is an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   float64
}

// MonthOverview is the summary of one user's expenses for a year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      float64
	Count      int
	ByCategory []CategoryAmount
}
