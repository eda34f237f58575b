// Package domain defines the core data model of the villa finance
// tracker: categories, transactions and the derived summary.
package domain

// TransactionType classifies a category or transaction as money in or out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Users allowed to enter transactions. The villa is managed by two
// people; the enterer is recorded on every transaction.
const (
	UserKaan = "Kaan"
	UserSefa = "Sefa"
)

// Category is a named bucket (income or expense) that transactions
// reference. Deleting a category does not cascade; transactions keep
// their categoryId and render as "unknown".
type Category struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Type TransactionType `json:"type"`
}

// EntityID implements Entity.
func (c Category) EntityID() string { return c.ID }

// Transaction is a single dated financial event. Date is an ISO 8601
// timestamp string, kept as entered. Category is resolved at read time
// and never persisted.
type Transaction struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Type        TransactionType `json:"type"`
	CategoryID  string          `json:"categoryId"`
	Amount      float64         `json:"amount"`
	User        string          `json:"user"`
	Description string          `json:"description,omitempty"`
	Category    *Category       `json:"category,omitempty"`
}

// EntityID implements Entity.
func (t Transaction) EntityID() string { return t.ID }

// Entity is anything the entity store can persist under a string id.
type Entity interface {
	EntityID() string
}

// TransactionSummary is fully derived from the transaction set at read
// time; it is never stored.
type TransactionSummary struct {
	TotalIncome    float64 `json:"totalIncome"`
	TotalExpenses  float64 `json:"totalExpenses"`
	NetProfit      float64 `json:"netProfit"`
	CurrentBalance float64 `json:"currentBalance"`
}

// TransactionList is the read model of GET /api/transactions.
type TransactionList struct {
	Transactions []Transaction      `json:"transactions"`
	Summary      TransactionSummary `json:"summary"`
}

// NewCategory is the create/update payload for a category.
type NewCategory struct {
	Name string `json:"name" validate:"required,min=1"`
	Type string `json:"type" validate:"required,oneof=income expense"`
}

// NewTransaction is the create/update payload for a transaction.
// CategoryID is a soft reference: existence in the category store is
// deliberately not verified at write time.
type NewTransaction struct {
	Date        string  `json:"date" validate:"required"`
	Type        string  `json:"type" validate:"required,oneof=income expense"`
	CategoryID  string  `json:"categoryId" validate:"required,min=1"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	User        string  `json:"user" validate:"required,oneof=Kaan Sefa"`
	Description string  `json:"description,omitempty"`
}

// DeleteResult reports whether a delete actually removed a record.
// Deleting an unknown id is not an error, just deleted=false.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// LoginRequest exchanges the shared gate password for a token.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the signed gate token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// StatsSnapshot is the ops read model of GET /api/stats, assembled
// from the Prometheus counters.
type StatsSnapshot struct {
	TotalRequests     int64   `json:"totalRequests"`
	ErrorRate         float64 `json:"errorRate"`
	CategoryWrites    int64   `json:"categoryWrites"`
	TransactionWrites int64   `json:"transactionWrites"`
	SeedRuns          int64   `json:"seedRuns"`
	Period            string  `json:"period"`
}

// SeedCategories is the fixed default category set, created once on
// first use when the category store is empty.
var SeedCategories = []Category{
	{ID: "cat_inc_1", Name: "Kira", Type: TypeIncome},
	{ID: "cat_inc_2", Name: "Bonus", Type: TypeIncome},
	{ID: "cat_exp_1", Name: "Alışveriş", Type: TypeExpense},
	{ID: "cat_exp_2", Name: "Temizlik", Type: TypeExpense},
	{ID: "cat_exp_3", Name: "Havuz", Type: TypeExpense},
	{ID: "cat_exp_4", Name: "Muhasebe", Type: TypeExpense},
	{ID: "cat_exp_5", Name: "Kira", Type: TypeExpense},
	{ID: "cat_exp_6", Name: "Vergi", Type: TypeExpense},
	{ID: "cat_exp_7", Name: "Bakım-Tadilat", Type: TypeExpense},
	{ID: "cat_exp_8", Name: "Websiteleri", Type: TypeExpense},
	{ID: "cat_exp_9", Name: "Sosyal Medya", Type: TypeExpense},
	{ID: "cat_exp_10", Name: "Sefa", Type: TypeExpense},
	{ID: "cat_exp_11", Name: "Kaan", Type: TypeExpense},
	{ID: "cat_exp_12", Name: "Çalışan Maaş", Type: TypeExpense},
}
