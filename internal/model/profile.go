package model

// Profile is the public profile of a GitHub account.
// Fields the owner left blank (or hid) decode to "".
type Profile struct {
	Login    string `json:"login"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Blog     string `json:"blog"`
	Location string `json:"location"`
}

// Contact returns the best way to reach the account: the public email,
// else the blog or website, else "".
func (p Profile) Contact() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Blog
}
