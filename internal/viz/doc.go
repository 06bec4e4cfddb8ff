// Package viz renders neighborhood-search results in the terminal.
//
//   - [RenderSummary]: a styled report of one run with a neighbor-count
//     histogram
//   - [Watch]: a live Bubble Tea view that perturbs the particles every tick
//     and reruns the search
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset particles to their initial positions
//	Q     - Quit
package viz
