// Package pricing turns raw day price tables into priced intervals. Fetch
// failures are absorbed per day so planning keeps working with partial data,
// e.g. before tomorrow's prices are published.
package pricing
