// Package planner selects the cheapest price intervals inside a demand window
// that cover an energy requirement, then widens short charging blocks to a
// minimum duration.
//
// The selection is a greedy price-ordered cover followed by a block-length
// correction pass. Once blocks are widened the result may cost more than the
// cheapest cover; fewer and longer charging periods are preferred.
package planner
