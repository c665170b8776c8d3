// Package proximity turns a device position stream into a routed distance
// stream toward a venue.
//
// Positions are throttled (latest wins), resolved one at a time into routed
// distances, and forwarded until the first distance at or below the proximity
// threshold. That reading is not forwarded: the location session is stopped
// and the output completes without error. Any source or resolver failure
// fails the output.
package proximity
