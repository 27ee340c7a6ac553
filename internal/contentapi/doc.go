// Package contentapi fetches page metadata from the GOV.UK search API.
//
// For a page path the client issues
//
//	GET {base}?filter_link[]={page}&fields=organisations&fields=mainstream_browse_pages
//
// and reads the organisation titles and mainstream browse pages of the first
// result. Every request has its own timeout. Retries are off unless enabled
// with WithRetries, and a token bucket can throttle outbound traffic.
//
// Requests can be routed through an HTTP or SOCKS5 proxy:
//
//	c, err := contentapi.NewClient(
//		contentapi.WithProxy("socks5://127.0.0.1:1080"),
//		contentapi.WithRateLimit(5, 5),
//	)
package contentapi
