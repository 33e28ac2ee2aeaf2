package model

// ProjectCategory is a node of the project tree. The remote API returns one
// level of children; deeper nesting does not occur in practice.
type ProjectCategory struct {
	ID       int               `json:"id"`
	Name     string            `json:"name"`
	ParentID int               `json:"parentChapterId"`
	Order    int               `json:"order"`
	Children []ProjectCategory `json:"children"`
}

// HotKey is a trending search term suggested by the server.
type HotKey struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Link  string `json:"link"`
	Order int    `json:"order"`
}

// CoinInfo is the signed-in user's points summary.
type CoinInfo struct {
	UserID    int    `json:"userId"`
	Username  string `json:"username"`
	CoinCount int    `json:"coinCount"`
	Level     int    `json:"level"`
	Rank      string `json:"rank"`
}
