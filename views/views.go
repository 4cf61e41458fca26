// Package views is the stock set of page components. Sites that want their
// own markup build a parango.ViewFuncs of their own and reuse the helpers.
package views

import "github.com/parangodev/parango"

// Default returns the stock views.
func Default() parango.ViewFuncs {
	return parango.ViewFuncs{
		Home:           Home,
		List:           List,
		Entry:          Entry,
		Search:         Search,
		AdminLogin:     AdminLogin,
		AdminDashboard: AdminDashboard,
		NotFound:       NotFound,
		ServerError:    ServerError,
	}
}
