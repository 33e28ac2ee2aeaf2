package model

// Article is a single entry of any remote article list: home feed, project
// feed, search results, or the favorites list. Identity is ID; two articles
// are the same iff their IDs match, content is irrelevant for de-duplication.
type Article struct {
	ID               int          `json:"id"`
	Title            string       `json:"title"`
	Desc             string       `json:"desc"`
	Link             string       `json:"link"`
	Author           string       `json:"author"`
	ShareUser        string       `json:"shareUser"`
	NiceDate         string       `json:"niceDate"`
	PublishTime      int64        `json:"publishTime"`
	Collect          bool         `json:"collect"`
	SuperChapterName string       `json:"superChapterName"`
	ChapterName      string       `json:"chapterName"`
	EnvelopePic      string       `json:"envelopePic"`
	Type             int          `json:"type"`
	Fresh            bool         `json:"fresh"`
	Tags             []ArticleTag `json:"tags"`

	// OriginID is only meaningful for articles decoded from the favorites
	// list, where the entry is a server-side copy and ID identifies the copy
	// rather than the article itself. The remote un-favorite endpoint wants
	// the origin id in that case. Feed endpoints return -1 here.
	OriginID int `json:"originId"`
}

type ArticleTag struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CanonicalID resolves the identity of the underlying article: the origin
// id for favorites-list copies, the article's own id everywhere else. This
// is the id favorite state is keyed by and the id the favorite/un-favorite
// endpoints expect. Resolved once here so call sites cannot conflate the
// two ids.
func (a *Article) CanonicalID() int {
	if a.OriginID > 0 {
		return a.OriginID
	}
	return a.ID
}

// DisplayAuthor returns the author if the article was written on-site, or
// the sharing user for externally shared links.
func (a *Article) DisplayAuthor() string {
	if a.Author != "" {
		return a.Author
	}
	return a.ShareUser
}
