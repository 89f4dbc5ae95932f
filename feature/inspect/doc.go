// Package inspect exposes a read-mostly HTTP view of one engine side.
//
// Each side ("local", "remote") is registered as its own feature and mounted
// under /<side>. Routes:
//
//	GET  /<side>/nodes/:id            node and its path
//	GET  /<side>/nodes/:id/children   direct children
//	GET  /<side>/alt/:volume/*        node by external id
//	GET  /<side>/operations           drain the committed operation log
//	GET  /<side>/stats                pass counters
//	POST /<side>/passes?mode=dirty    run a pass now
package inspect
