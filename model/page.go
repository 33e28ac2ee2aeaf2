package model

// ArticlePage is the list payload every paginated endpoint wraps inside the
// response envelope. Over reports server-side exhaustion; a short page
// (len(Datas) < Size) is treated the same way by callers.
type ArticlePage struct {
	CurPage   int       `json:"curPage"`
	Datas     []Article `json:"datas"`
	Offset    int       `json:"offset"`
	Over      bool      `json:"over"`
	PageCount int       `json:"pageCount"`
	Size      int       `json:"size"`
	Total     int       `json:"total"`
}

// Exhausted reports whether there is any point requesting the next page.
func (p *ArticlePage) Exhausted() bool {
	return p.Over || (p.Size > 0 && len(p.Datas) < p.Size)
}
