package domain

// Account is a stored credential record. Optional fields carry omitempty so a
// full-record replacement that omits them really drops them from the stored
// JSON instead of writing empty strings.
type Account struct {
	ID         string `json:"id"`
	CategoryID string `json:"categoryId,omitempty"`
	Name       string `json:"name,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	URL        string `json:"url,omitempty"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}
