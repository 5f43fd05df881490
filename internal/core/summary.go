package core

// Summary is the derived account overview for the dashboard.
// All sums are computed from the ledger; nothing here is stored.
type Summary struct {
	Balance         Money
	CreditLimit     Money
	CreditUsed      Money
	CreditAvailable Money
	TodayExpenses   Money
	MonthExpenses   Money
	MonthIncome     Money
	MonthBalance    Money
}

// CategorySpend represents card spending aggregated by category.
type CategorySpend struct {
	Category string
	Total    Money
	Count    int64
}

// CardOverview is the derived credit-card view: account fields plus the
// recent card activity used by the card screen.
type CardOverview struct {
	Limit              Money
	Used               Money
	Available          Money
	DueDay             int
	DaysUntilDue       int
	PercentUsed        float64
	RecentTransactions []Transaction
	CategoryBreakdown  []CategorySpend
}

// PaymentResult reports the state after a successful bill payment.
type PaymentResult struct {
	PaidAmount      Money
	NewBalance      Money
	NewCreditUsed   Money
	CreditAvailable Money
}

// CardSettings carries optional updates for the card configuration.
// Nil fields are left unchanged.
type CardSettings struct {
	CreditLimit *Money
	DueDay      *int
}

// Category is a seeded transaction label with its display icon.
type Category struct {
	Name string
	Icon string
	Kind string // "expense" or "income"
}
