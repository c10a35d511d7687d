// Package tui implements `squadron top`, a live dashboard of the team.
//
// The dashboard polls a [Source] on an interval and shows three panels:
// members with their liveness, active task claims, and the latest heartbeat
// of each member. Selecting a member and pressing enter shows the tail of its
// terminal.
package tui
