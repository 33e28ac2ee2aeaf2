package model

// Banner is a home-screen carousel entry.
type Banner struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Desc      string `json:"desc"`
	URL       string `json:"url"`
	ImagePath string `json:"imagePath"`
	IsVisible int    `json:"isVisible"`
	Order     int    `json:"order"`
	Type      int    `json:"type"`
}
