package model

// UserProfile is the payload of a successful login or register call.
type UserProfile struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	Nickname   string `json:"nickname"`
	PublicName string `json:"publicName"`
	Email      string `json:"email"`
	Icon       string `json:"icon"`
	Token      string `json:"token"`
	Type       int    `json:"type"`
	Admin      bool   `json:"admin"`
	CoinCount  int    `json:"coinCount"`
	// CollectIDs seeds the local favorites set before the first full refresh.
	CollectIDs []int `json:"collectIds"`
}

// Session is the locally persisted identity: the opaque token from the login
// payload plus a minimal profile snapshot. The operative credential for
// subsequent requests is the session cookie held by the HTTP client's jar;
// the token is persisted because the wire contract returns one, and its
// presence is what defines "authenticated".
type Session struct {
	Token    string `json:"token"`
	UserID   int    `json:"userId"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != ""
}

// NewSession builds a Session from a login payload.
func NewSession(p *UserProfile) *Session {
	return &Session{
		Token:    p.Token,
		UserID:   p.ID,
		Username: p.Username,
		Nickname: p.Nickname,
	}
}
