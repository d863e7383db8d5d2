// Package urls provides centralized constants for the vendor portal and
// project links used in user-facing output.
//
// Usage:
//
//	import "github.com/muurk/mastertherm/internal/urls"
//
//	fmt.Printf("Check your credentials at %s\n", urls.Portal(apiVersion))
package urls
