// Package route names the pages the controllers navigate between.
package route

// Route identifies a page
type Route string

const (
	Bills   Route = "/bills"
	NewBill Route = "/bills/new"
)

// Navigator moves the user to another page
type Navigator interface {
	Navigate(to Route)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(to Route)

func (f NavigatorFunc) Navigate(to Route) {
	f(to)
}
