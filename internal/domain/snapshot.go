package domain

// PageSnapshot is the observable outcome of rendering a listing detail
// page: the final HTTP status, where the navigation ended up, and what
// the page showed.
type PageSnapshot struct {
	StatusCode int
	FinalURL   string
	Title      string
	Content    string
}
