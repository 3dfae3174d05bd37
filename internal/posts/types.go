package posts

import "time"

// Post is one blog entry. UserID is a pointer because rows created before
// ownership was recorded have no owner; such posts are admin-only to mutate.
// The owner is set at creation and never changes; it is the sole authority
// for ownership checks.
type Post struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorName string    `json:"author_name"`
	UserID     *int      `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (p Post) Clone() Post {
	out := p
	if p.UserID != nil {
		id := *p.UserID
		out.UserID = &id
	}
	return out
}
