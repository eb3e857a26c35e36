package category

// ID identifies one of the fixed spending categories.
type ID string

const (
	Bills         ID = "bills"
	Shopping      ID = "shopping"
	SelfCare      ID = "selfcare"
	Entertainment ID = "entertainment"
	Food          ID = "food"
	// FollowUp is the deferred pseudo-category: expenses parked here are
	// pending a later split into real categories. It is excluded from budget
	// allocation and from the spending chart.
	FollowUp ID = "followup"
)

// Category is configuration, not a persisted entity.
type Category struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var categories = []Category{
	{ID: Bills, Name: "Bills", Icon: "📄", Color: "#3498DB"},
	{ID: Shopping, Name: "Shopping", Icon: "🛍️", Color: "#F39C12"},
	{ID: SelfCare, Name: "Self Care", Icon: "✨", Color: "#FF6B9D"},
	{ID: Entertainment, Name: "Entertainment", Icon: "🎬", Color: "#9B59B6"},
	{ID: Food, Name: "Food", Icon: "🍽️", Color: "#4ECDC4"},
	{ID: FollowUp, Name: "Follow-up", Icon: "🚩", Color: "#E74C3C"},
}

// All returns every category including the follow-up pseudo-category.
func All() []Category {
	result := make([]Category, len(categories))
	copy(result, categories)
	return result
}

// Spendable returns the categories that take part in budget allocation,
// in display order.
func Spendable() []Category {
	result := make([]Category, 0, len(categories)-1)
	for _, c := range categories {
		if c.ID != FollowUp {
			result = append(result, c)
		}
	}
	return result
}

// ByID looks up a category. The second return value is false for unknown ids.
func ByID(id ID) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// IsValid reports whether id names one of the fixed categories.
func IsValid(id ID) bool {
	_, ok := ByID(id)
	return ok
}

// IsSpendable reports whether id is a real category that can receive budget
// allocation, i.e. anything but follow-up.
func IsSpendable(id ID) bool {
	return IsValid(id) && id != FollowUp
}
