// Package crawler holds the request, content and error types shared by the
// gateway's detector, retrieval strategies, dispatcher and HTTP layer, along
// with the small interfaces that connect them.
package crawler
