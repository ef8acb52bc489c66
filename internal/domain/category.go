package domain

// Category groups accounts under a user-chosen label.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Icon      string `json:"icon,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}
