// Package analyzer holds the three audit modules (SEO, security, AEO)
// and the secret scanner. Each module is a pure function from a
// read-only document to an ordered list of issues, which keeps the
// pipeline free to run them concurrently.
package analyzer
